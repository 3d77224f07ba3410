package server

import (
	"reflect"
	"strings"
	"sync"

	"planning-poker/internal/poker"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Report request fields by the names clients send.
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := poker.ValidateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("story", func(fl validator.FieldLevel) bool {
			_, err := poker.ValidateStory(fl.Field().String())
			return err == nil
		})
		// An empty card clears the vote.
		_ = engine.RegisterValidation("card", func(fl validator.FieldLevel) bool {
			value := strings.TrimSpace(fl.Field().String())
			return value == "" || poker.IsCard(value)
		})
	})
}

var (
	roomMessages = bindMessages{
		"name": {
			"required": "name is required",
			"name":     "name must be 1 to 32 printable characters",
		},
	}
	voteMessages = bindMessages{
		"participant_id": {"required": "participant_id is required"},
		"value":          {"card": "invalid card value"},
	}
	storyMessages = bindMessages{
		"story": {"story": "story must be 280 printable characters or fewer"},
	}
	leaveMessages = bindMessages{
		"participant_id": {"required": "participant_id is required"},
	}
)
