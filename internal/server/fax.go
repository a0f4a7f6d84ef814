package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
)

type sendFaxDocument struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type sendFaxRequest struct {
	Recipients []string          `json:"recipients"`
	Documents  []sendFaxDocument `json:"documents"`
	SenderID   string            `json:"sender_id"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	Provider   string            `json:"provider"`
	Pages      int               `json:"pages"`
	Metadata   map[string]any    `json:"metadata"`
}

func (s *Server) SendFax(c *gin.Context) {
	var body sendFaxRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	attachments := make([]faxdomain.Attachment, 0, len(body.Documents))
	for _, doc := range body.Documents {
		data, err := base64.StdEncoding.DecodeString(doc.Data)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		attachments = append(attachments, faxdomain.Attachment{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Data:        data,
		})
	}

	req := faxdomain.SendRequest{
		Recipients:  body.Recipients,
		Attachments: attachments,
		SenderID:    body.SenderID,
		Subject:     body.Subject,
		Message:     body.Message,
		Provider:    body.Provider,
		PageCount:   body.Pages,
		Metadata:    body.Metadata,
	}
	// An explicit query parameter outranks the body field.
	if q := strings.TrimSpace(c.Query("provider")); q != "" {
		req.Provider = q
	}

	record, err := s.faxSvc.Send(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fax": record})
}

func (s *Server) GetFax(c *gin.Context) {
	record, err := s.faxSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fax": record})
}

func (s *Server) ListFaxes(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	records, err := s.faxSvc.List(c.Request.Context(), faxdomain.ListRequest{Limit: limit})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faxes": records})
}
