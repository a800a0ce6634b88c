package uploads

import (
	"errors"

	"showroom-backend/internal/application/attachments"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/request"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the attachment service.
type Handlers struct {
	Service *attachments.Service
}

type uploadRequest struct {
	FileName string `json:"file_name" validate:"required,max=200"`
}

// PaymentAttachment POST /api/v1/uploads/payment-attachment: sign an upload slot.
// The client PUTs the file to uploadUrl and sends path back as attachment_path.
func (h *Handlers) PaymentAttachment(c *fiber.Ctx) error {
	var req uploadRequest
	if err := request.Body(c, &req); err != nil {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.NewUpload(c.UserContext(), req.FileName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return response.FromError(c, err)
		}
		log.Error().Err(err).Str("file_name", req.FileName).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
