package handlers

import (
	"github.com/college-admin/backend/internal/http/dto"
	"github.com/college-admin/backend/internal/middleware"
	"github.com/college-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ApplicationHandler struct {
	apps *services.ApplicationService
	log  *zap.Logger
}

func NewApplicationHandler(apps *services.ApplicationService, log *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, log: log}
}

func (h *ApplicationHandler) GetApplication(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	app, err := h.apps.GetApplication(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) UpdateApplication(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateApplicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.apps.UpdateApplication(c.UserContext(), middleware.GetUserID(c), id, services.ProfilePatch{
		StudentName:       req.StudentName,
		Email:             req.Email,
		Phone:             req.Phone,
		CourseCode:        req.CourseCode,
		DateOfBirth:       req.DateOfBirth.Ptr(),
		HasPendingResults: req.HasPendingResults,
		Notes:             req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	app, err := h.apps.UpdateStatus(c.UserContext(), middleware.GetUserID(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: app})
}

func (h *ApplicationHandler) UpdateQualifications(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateQualificationsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	counts, err := h.apps.UpdateQualifications(c.UserContext(), middleware.GetUserID(c), id, req.ToModels())
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: counts})
}

func (h *ApplicationHandler) UpdatePendingQualifications(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdatePendingQualificationsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	counts, err := h.apps.UpdatePendingQualifications(c.UserContext(), middleware.GetUserID(c), id, req.ToModels())
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: counts})
}

func (h *ApplicationHandler) UpdateWorkExperience(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateWorkExperienceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	counts, err := h.apps.UpdateWorkExperience(c.UserContext(), middleware.GetUserID(c), id, req.ToModels())
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: counts})
}

func (h *ApplicationHandler) ScheduleInterview(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ScheduleInterviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	iv, err := h.apps.ScheduleInterview(c.UserContext(), middleware.GetUserID(c), id, req.ToModel())
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: iv})
}

func (h *ApplicationHandler) UpdateInterviewQuestions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.InterviewQuestionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	iv, err := h.apps.UpdateInterviewQuestions(c.UserContext(), middleware.GetUserID(c), id, req.Answers)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: iv})
}

func (h *ApplicationHandler) UpdatePaymentPlan(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.PaymentPlanRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	plan, err := h.apps.UpdatePaymentPlan(c.UserContext(), middleware.GetUserID(c), id, req.ToModel())
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: plan})
}

func (h *ApplicationHandler) AddFile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddFileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	f, err := h.apps.AddFile(c.UserContext(), middleware.GetUserID(c), id, req.Name, req.URL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: f})
}

func (h *ApplicationHandler) DeleteFile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fileID, err := paramID(c, "fileId")
	if err != nil {
		return err
	}

	if err := h.apps.DeleteFile(c.UserContext(), middleware.GetUserID(c), id, fileID); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Activity serves the rendered timeline. page and page_size are clamped by
// the timeline; full=true turns off truncation of long text.
func (h *ApplicationHandler) Activity(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	page, err := h.apps.Timeline(c.UserContext(), id, c.QueryInt("page", 1), c.QueryInt("page_size", 0), c.QueryBool("full", false))
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}
