package handlers

import (
	"sort"

	"github.com/college-admin/backend/internal/auditlog"
	"github.com/college-admin/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
)

// MetaHandler exposes the label tables so clients can build filters that
// match the timeline's wording.
type MetaHandler struct {
	actions []dto.LabelResponse
	fields  []dto.LabelResponse
}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{
		actions: labelList(auditlog.ActionLabels),
		fields:  labelList(auditlog.FieldLabels),
	}
}

func labelList(m map[string]string) []dto.LabelResponse {
	out := make([]dto.LabelResponse, 0, len(m))
	for k, v := range m {
		out = append(out, dto.LabelResponse{Key: k, Label: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (h *MetaHandler) GetActions(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.actions})
}

func (h *MetaHandler) GetFields(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.fields})
}
