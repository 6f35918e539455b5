package respond

import (
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Success represents a standard structure for successful responses.
type Success struct {
	Result interface{} `json:"result"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// Created sends a 201 Created JSON response, wrapping the given result in a Success struct.
func Created(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusCreated, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}

// Data writes raw bytes with the given content type.
func Data(c *ginext.Context, status int, contentType string, data []byte) {
	c.Data(status, contentType, data)
}

// Attachment writes data as a file download named filename. Unlike the
// other helpers it reports write failures, so callers can tell whether the
// client received the whole body.
func Attachment(c *ginext.Context, filename, contentType string, data []byte) error {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", fmt.Sprint(len(data)))
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(data); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}
