package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pollcast/pollcast/pkg/internal/http/exts"
)

func (v *Controller) createPoll(c *fiber.Ctx) error {
	var data struct {
		Question       string            `json:"question" validate:"required"`
		Options        map[string]string `json:"options" validate:"required,min=2"`
		ExpirationTime time.Time         `json:"expiration_time" validate:"required"`
		CreatorID      uint              `json:"creator_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	poll, err := v.polls.NewPoll(data.Question, data.Options, data.ExpirationTime, data.CreatorID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(poll)
}

func (v *Controller) getPoll(c *fiber.Ctx) error {
	pollId, _ := c.ParamsInt("pollId")

	poll, err := v.polls.GetPollWithResults(uint(pollId))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(poll)
}

func (v *Controller) listPolls(c *fiber.Ctx) error {
	if len(c.Query("owner")) == 0 || len(c.Query("expiresBefore")) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "missing query parameters: owner and expiresBefore are required")
	}

	owner := c.QueryInt("owner")
	expiresBefore, err := time.Parse(time.RFC3339, c.Query("expiresBefore"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expiresBefore must be a RFC 3339 timestamp")
	}

	polls, err := v.polls.ListPolls(uint(owner), expiresBefore)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"polls": polls,
	})
}

func (v *Controller) deletePoll(c *fiber.Ctx) error {
	pollId, _ := c.ParamsInt("pollId")

	var data struct {
		CreatorID uint `json:"creator_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if err := v.polls.DeletePoll(uint(pollId), data.CreatorID); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"message": "Poll deleted successfully",
	})
}
