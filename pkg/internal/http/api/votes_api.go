package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pollcast/pollcast/pkg/internal/http/exts"
)

func (v *Controller) castVote(c *fiber.Ctx) error {
	pollId, _ := c.ParamsInt("pollId")

	var data struct {
		VoterID        uint   `json:"voter_id" validate:"required"`
		OptionSelected string `json:"option_selected" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if _, err := v.votes.Cast(uint(pollId), data.VoterID, data.OptionSelected); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"message": "Vote cast successfully",
	})
}
