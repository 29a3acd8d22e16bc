package quiz

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxVideos is the largest number of videos a learner can queue.
const MaxVideos = 4

// ValidationError describes input the learner (or the analysis service)
// supplied that cannot be used.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var namePattern = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	tags := map[string]validator.Func{
		"learner_name": func(fl validator.FieldLevel) bool {
			return namePattern.MatchString(fl.Field().String())
		},
		"youtube_url": func(fl validator.FieldLevel) bool {
			return ValidateVideoURL(fl.Field().String()) == nil
		},
		"timestamp": func(fl validator.FieldLevel) bool {
			return timestampPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range tags {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
}

// Validator returns the shared validator with the quiz tags registered
// (learner_name, youtube_url, timestamp).
func Validator() *validator.Validate {
	return validate
}

type learnerName struct {
	Name string `validate:"required,min=2,max=50,learner_name"`
}

// ValidateName trims and validates a learner name and returns the
// normalized form.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := validate.Struct(learnerName{Name: trimmed}); err != nil {
		return "", nameError(err)
	}
	return trimmed, nil
}

func nameError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "name", Message: err.Error()}
	}
	var msg string
	switch verrs[0].Tag() {
	case "required":
		msg = "Please enter your name"
	case "min":
		msg = "Name must be at least 2 characters long"
	case "max":
		msg = "Name must be less than 50 characters"
	default:
		msg = "Name can only contain letters, spaces, hyphens, and apostrophes"
	}
	return &ValidationError{Field: "name", Message: msg}
}

// ExtractVideoID returns the YouTube video id embedded in rawURL, or ""
// when the URL is not a recognized YouTube link.
func ExtractVideoID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	switch {
	case strings.Contains(u.Hostname(), "youtube.com"):
		return u.Query().Get("v")
	case strings.Contains(u.Hostname(), "youtu.be"):
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}

// ThumbnailURL returns the still image YouTube serves for rawURL, or ""
// when no video id can be found.
func ThumbnailURL(rawURL string) string {
	id := ExtractVideoID(rawURL)
	if id == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// ValidateVideoURL checks that rawURL points at a YouTube video.
func ValidateVideoURL(rawURL string) error {
	if len(ExtractVideoID(rawURL)) != 11 {
		return &ValidationError{Field: "url", Message: "Please ensure all video URLs are valid YouTube URLs"}
	}
	return nil
}

// ValidateVideoURLs drops blank entries, validates the rest and enforces
// the MaxVideos limit.
func ValidateVideoURLs(urls []string) ([]string, error) {
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := ValidateVideoURL(u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if len(out) == 0 {
		return nil, &ValidationError{Field: "videos", Message: "Please enter at least one video URL"}
	}
	if len(out) > MaxVideos {
		return nil, &ValidationError{Field: "videos", Message: fmt.Sprintf("At most %d videos can be added", MaxVideos)}
	}
	return out, nil
}
