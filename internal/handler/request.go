package handler

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

var errInvalidAuthorization = errors.New("invalid authorization header")

// bindJSON decodes the body into dst, writing a 415 for a non-JSON content
// type or a 422 for a body that does not decode. It reports whether the
// handler should continue.
func bindJSON(c *gin.Context, dst any) bool {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != gin.MIMEJSON {
		c.JSON(http.StatusUnsupportedMediaType, response.UnsupportedMediaType(""))
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusUnprocessableEntity, response.ValidationFailed(map[string]string{
			"body": "request body is not valid JSON for this endpoint",
		}))
		return false
	}
	return true
}

// bearerPassword extracts the password from "Authorization: Bearer <base64>".
// A missing header yields an empty password.
func bearerPassword(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errInvalidAuthorization
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", errInvalidAuthorization
	}
	return string(decoded), nil
}
