package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pollcast/pollcast/pkg/internal/http/exts"
)

func (v *Controller) createUser(c *fiber.Ctx) error {
	var data struct {
		Username string `json:"username"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := v.users.NewAccount(data.Username)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(user)
}
