package domain

import (
	"fmt"
	"strings"
)

type Gender string

const (
	GenderFemale Gender = "FEMALE"
	GenderMale   Gender = "MALE"
)

// ParseGender maps request input onto a Gender. Empty input selects the female voice,
// matching the provider default; anything else unrecognized is rejected.
func ParseGender(raw string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "FEMALE", "F", "WOMAN", "GIRL":
		return GenderFemale, nil
	case "MALE", "M", "MAN", "BOY":
		return GenderMale, nil
	default:
		return "", fmt.Errorf("%w: unknown voice gender %q", ErrInvalidRequest, raw)
	}
}

// VoiceSpec selects a speech synthesizer. It is a closed set: StandardVoice or ClonedVoice.
type VoiceSpec interface {
	voiceSpec()
	String() string
}

// StandardVoice uses a fixed per-gender cloud voice profile.
type StandardVoice struct {
	Gender Gender
}

// ClonedVoice conditions a voice-cloning model on a reference sample fetched from ReferenceURL.
type ClonedVoice struct {
	ReferenceURL string
}

func (StandardVoice) voiceSpec() {}
func (ClonedVoice) voiceSpec()   {}

func (v StandardVoice) String() string { return "standard:" + string(v.Gender) }
func (v ClonedVoice) String() string   { return "cloned" }

// NewVoiceSpec builds the variant from the optional request fields. A non-blank reference URL
// always wins over gender.
func NewVoiceSpec(gender, referenceURL string) (VoiceSpec, error) {
	if u := strings.TrimSpace(referenceURL); u != "" {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("%w: voice reference must be an http(s) url", ErrInvalidRequest)
		}
		return ClonedVoice{ReferenceURL: u}, nil
	}
	g, err := ParseGender(gender)
	if err != nil {
		return nil, err
	}
	return StandardVoice{Gender: g}, nil
}
