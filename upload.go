package folio

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/imaging"
	"github.com/eringen/folio/publish"
)

const imagesDir = "images/"

type uploadRequest struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	// ConvertToWebP defaults to true; only an explicit false skips conversion.
	ConvertToWebP *bool `json:"convertToWebp"`
}

type uploadResponse struct {
	StagedFile publish.File `json:"stagedFile"`
	Filename   string       `json:"filename"`
	Size       int          `json:"size"`
}

func (a *App) handleUpload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if imaging.BaseName(req.Filename) == "" || req.Data == "" {
		return badRequest("filename and data required")
	}
	data, err := decodeBase64(req.Data)
	if err != nil {
		return badRequest("data is not valid base64")
	}
	convert := req.ConvertToWebP == nil || *req.ConvertToWebP
	img, err := imaging.Normalize(data, req.Filename, imaging.Options{
		Convert:  convert,
		MaxWidth: a.Config.maxImageWidth(),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, uploadResponse{
		StagedFile: publish.File{
			Path:     imagesDir + img.Filename,
			Content:  base64.StdEncoding.EncodeToString(img.Data),
			Encoding: content.EncodingBase64,
		},
		Filename: img.Filename,
		Size:     len(img.Data),
	})
}

// decodeBase64 accepts padded or unpadded data, optionally as a data: URL.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
