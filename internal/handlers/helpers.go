package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/archivesocial/archive/backend/internal/errors"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// formImageField is the multipart field uploads are read from
const formImageField = "image"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// imageFromForm opens the optional image upload. It returns a nil image when
// the request carries none; on failure it has already responded.
func imageFromForm(c *gin.Context) (*storage.Image, io.Closer, bool) {
	fh, err := c.FormFile(formImageField)
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) || stderrors.Is(err, http.ErrNotMultipart) {
			return nil, nopCloser{}, true
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(c, err)
			return nil, nil, false
		}
		util.RespondWithAPIError(c, errors.BadRequest("invalid multipart form").WithDetails(err.Error()))
		return nil, nil, false
	}

	img, closer, err := storage.ImageFromMultipart(fh)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return &img, closer, true
}
