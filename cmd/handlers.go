package main

import (
	"github.com/gofiber/fiber/v2"
)

// ============================================================================
// Session Handlers
// ============================================================================

type createSessionRequest struct {
	SystemPrompt string `json:"system_prompt"`
	TokenBudget  int    `json:"token_budget"`
}

type createSessionResponse struct {
	SessionID    string `json:"session_id"`
	SystemPrompt string `json:"system_prompt"`
	TokenBudget  int    `json:"token_budget"`
}

func createSessionHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSessionRequest
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		session := container.NewSession(req.SystemPrompt, req.TokenBudget)
		id := container.Sessions.Put(session)

		prompt := req.SystemPrompt
		if prompt == "" {
			prompt = container.Config.Session.SystemPrompt
		}
		budget := req.TokenBudget
		if budget <= 0 {
			budget = container.Config.Session.TokenBudget
		}

		return c.Status(fiber.StatusCreated).JSON(createSessionResponse{
			SessionID:    id,
			SystemPrompt: prompt,
			TokenBudget:  budget,
		})
	}
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func postMessageHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := container.Sessions.Get(c.Params("id"))
		if err != nil {
			return err
		}

		var req postMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if req.Content == "" {
			return fiber.NewError(fiber.StatusBadRequest, "content is required")
		}

		reply, err := session.Respond(c.Context(), req.Content)
		if err != nil {
			// BUDGET_UNSATISFIABLE surfaces as 422: shorten the input or
			// recreate the session with a larger budget.
			return err
		}

		return c.JSON(postMessageResponse{
			SessionID: c.Params("id"),
			Reply:     reply,
		})
	}
}

func getHistoryHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := container.Sessions.Get(c.Params("id"))
		if err != nil {
			return err
		}

		messages, err := session.History()
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"session_id": c.Params("id"),
			"messages":   messages,
		})
	}
}

func deleteSessionHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := container.Sessions.Delete(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
