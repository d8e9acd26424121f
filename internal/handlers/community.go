package handlers

import (
	"strings"

	"civicconnect/internal/services"
	"civicconnect/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type CommunityHandler struct {
	posts         *services.CommunityService
	maxUploadSize int64
}

func NewCommunityHandler(posts *services.CommunityService, maxUploadSize int64) *CommunityHandler {
	return &CommunityHandler{
		posts:         posts,
		maxUploadSize: maxUploadSize,
	}
}

func (h *CommunityHandler) List(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, posts)
}

// Create accepts a JSON body or a multipart form with an optional image.
func (h *CommunityHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var in services.CreatePostInput
	if c.ContentType() == binding.MIMEJSON {
		if !bindJSON(c, &in, false) {
			return
		}
	} else {
		limitBody(c, h.maxUploadSize)
		if err := parseForm(c); err != nil {
			respondUploadError(c, err)
			return
		}
		in.Title = c.PostForm("title")
		in.Content = c.PostForm("content")
		in.Tag = strings.TrimSpace(c.PostForm("tag"))

		image, err := readUpload(c, "image")
		if err != nil {
			respondUploadError(c, err)
			return
		}
		in.Image = image
	}

	post, err := h.posts.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Post published", post)
}
