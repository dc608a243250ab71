// Package service holds the business rules over the document store: the
// auth gate, the user directory and the tweet store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var logg = logger.New()

// Publisher sends domain events to the event log.
type Publisher interface {
	Publish(ctx context.Context, e models.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Event) error { return nil }

// publish is best-effort: a lost event never fails the operation that
// produced it.
func publish(ctx context.Context, p Publisher, e models.Event) {
	if p == nil {
		return
	}
	e.ID = uuid.NewString()
	e.At = time.Now().UTC()
	if err := p.Publish(ctx, e); err != nil {
		logg.Error("service", "Failed to publish "+string(e.Type)+" event", err)
	}
}

// --- validation ---

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dob", validateDOB)
	_ = v.RegisterValidation("bcrypt", validateBcryptLength)
	return v
}

// maxPasswordBytes is the input limit of bcrypt.
const maxPasswordBytes = 72

// validateBcryptLength bounds the encoded length; max counts runes.
func validateBcryptLength(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxPasswordBytes
}

// validateDOB accepts a calendar date or an RFC 3339 timestamp.
func validateDOB(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// validationError turns validator failures into a ValidationError.
// requiredMsg is used when any required field is missing.
func validationError(err error, requiredMsg string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.Validation("Invalid request")
	}
	for _, e := range verrs {
		if e.Tag() == "required" {
			return models.Validation(requiredMsg)
		}
	}
	e := verrs[0]
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "email":
		return models.Validation("Invalid email format")
	case "dob":
		return models.Validation("dob must be a date (YYYY-MM-DD)")
	case "max":
		return models.Validation(fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
	case "bcrypt":
		return models.Validation(fmt.Sprintf("%s must be at most %d bytes", field, maxPasswordBytes))
	case "excludesall":
		return models.Validation(field + " contains invalid characters")
	default:
		return models.Validation("Invalid value for " + field)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
