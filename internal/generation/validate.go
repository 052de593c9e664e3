package generation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrInvalidRequest is wrapped by every error returned from Validate.
var ErrInvalidRequest = errors.New("invalid generation request")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// Validate checks the request against the same bounds the web form enforces.
func Validate(r Request) error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Prompt":
		if fe.Tag() == "max" {
			return "prompt is too long"
		}
		return "prompt is required"
	case "NumScenes":
		return fmt.Sprintf("num_scenes must be between %d and %d", MinScenes, MaxScenes)
	case "MusicMood":
		return fmt.Sprintf("music_mood must be one of %s, %s, %s", MoodAmbient, MoodUpbeat, MoodCinematic)
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
