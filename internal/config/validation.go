package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is wrapped by every error returned from Validate.
var ErrValidation = errors.New("invalid configuration")

// Validate checks struct constraints and the few cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, format := range []struct {
		name  string
		value string
	}{
		{"messages.file_received", c.Messages.FileReceived},
		{"messages.search_summary", c.Messages.SearchSummary},
	} {
		if strings.Count(format.value, "%s") != 1 {
			return fmt.Errorf("%w: %s must contain exactly one %%s", ErrValidation, format.name)
		}
	}

	if minTimeout := c.MinHandlerTimeout(); c.Telegram.HandlerTimeout < minTimeout {
		return fmt.Errorf("%w: telegram.handler_timeout %s is shorter than the %s its external calls may take",
			ErrValidation, c.Telegram.HandlerTimeout, minTimeout)
	}
	// Downloads live in the scratch dir until their job ends.
	if c.OCR.ScratchMaxAge <= c.Telegram.HandlerTimeout {
		return fmt.Errorf("%w: ocr.scratch_max_age %s must exceed telegram.handler_timeout %s",
			ErrValidation, c.OCR.ScratchMaxAge, c.Telegram.HandlerTimeout)
	}

	return nil
}
