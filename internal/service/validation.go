package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	// IANA database for hosts without zoneinfo
	_ "time/tzdata"

	"github.com/prohmpiriya/jelli-fit/internal/dto"
)

// MaxNameLength is the longest accepted event or person name, in runes
const MaxNameLength = 100

// Time marks are "HHmm-DDMMYYYY" for dated events or "HHmm-D" for weekdays
var timeMarkPattern = regexp.MustCompile(`^\d{4}-(\d{8}|\d)$`)

func validateCreateEvent(req *dto.CreateEventRequest) error {
	verr := &ValidationError{}

	if req.Name != nil && utf8.RuneCountInString(strings.TrimSpace(*req.Name)) > MaxNameLength {
		verr.add("name", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}

	if len(req.Times) == 0 {
		verr.add("times", "at least one time is required")
	}
	for i, t := range req.Times {
		if !timeMarkPattern.MatchString(t) {
			verr.add("times", fmt.Sprintf("times[%d] %q is not a valid time", i, t))
		}
	}

	if req.Timezone == "" {
		verr.add("timezone", "timezone is required")
	} else if _, err := time.LoadLocation(req.Timezone); err != nil {
		verr.add("timezone", fmt.Sprintf("unknown timezone %q", req.Timezone))
	}

	return verr.orNil()
}

func validatePersonName(name string) *ValidationError {
	verr := &ValidationError{}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		verr.add("name", "name is required")
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		verr.add("name", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	return verr
}

func validateUpdatePerson(name string, req *dto.UpdatePersonRequest) error {
	verr := validatePersonName(name)
	for i, t := range req.Availability {
		if !timeMarkPattern.MatchString(t) {
			verr.add("availability", fmt.Sprintf("availability[%d] %q is not a valid time", i, t))
		}
	}
	return verr.orNil()
}
