package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pollcast/pollcast/pkg/internal/services"
)

// Controller carries the service handles the endpoints work against.
type Controller struct {
	users *services.UserService
	polls *services.PollService
	votes *services.VoteService
}

func NewController(users *services.UserService, polls *services.PollService, votes *services.VoteService) *Controller {
	return &Controller{users: users, polls: polls, votes: votes}
}

func (v *Controller) MapAPIs(app *fiber.App, baseURL string) {
	router := app.Group(baseURL)
	{
		router.Post("/users", v.createUser)
		router.Get("/polls", v.listPolls)
		router.Post("/polls", v.createPoll)
		router.Get("/polls/:pollId", v.getPoll)
		router.Delete("/polls/:pollId", v.deletePoll)
		router.Post("/polls/:pollId/vote", v.castVote)
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPollNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrUsernameTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotCreator):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrPollClosed),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrTooFewOptions),
		errors.Is(err, services.ErrInvalidOption):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
