package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cash-request-service/internal/models"
)

// ErrUnknownProfileShape is returned when a profile payload matches none of
// the accepted layouts.
var ErrUnknownProfileShape = errors.New("unrecognised profile payload")

// profileShape names which accepted layout a payload used.
type profileShape int

const (
	shapeUnknown profileShape = iota
	shapeNestedData
	shapeNestedUser
	shapeFlatEmail
	shapePhone
)

func (s profileShape) String() string {
	switch s {
	case shapeNestedData:
		return "data.user"
	case shapeNestedUser:
		return "user"
	case shapeFlatEmail:
		return "email"
	case shapePhone:
		return "phone"
	default:
		return "unknown"
	}
}

type socialUser struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Photo      string `json:"photo"`
}

type socialUserData struct {
	Data *struct {
		User *socialUser `json:"user"`
	} `json:"data"`
	User *socialUser `json:"user"`
	socialUser
}

type profilePayload struct {
	UserData              *socialUserData  `json:"userdata"`
	UID                   string           `json:"uid"`
	PhoneNumber           string           `json:"phoneNumber"`
	Location              *models.Location `json:"location"`
	PushNotificationToken string           `json:"pushNotificationToken"`
}

// decodeProfile accepts a social sign-in payload (userdata as {data:{user}},
// {user} or a flat object with email) or a phone payload {uid, phoneNumber}.
// Anything else fails.
func decodeProfile(raw []byte) (models.Profile, profileShape, error) {
	var p profilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Profile{}, shapeUnknown, fmt.Errorf("%w: %v", ErrUnknownProfileShape, err)
	}

	var profile models.Profile
	shape := shapeUnknown

	switch {
	case p.UserData != nil:
		var u *socialUser
		switch {
		case p.UserData.Data != nil && p.UserData.Data.User != nil:
			u, shape = p.UserData.Data.User, shapeNestedData
		case p.UserData.User != nil:
			u, shape = p.UserData.User, shapeNestedUser
		case p.UserData.Email != "":
			u, shape = &p.UserData.socialUser, shapeFlatEmail
		}
		if u == nil || strings.TrimSpace(u.Email) == "" {
			return models.Profile{}, shapeUnknown, fmt.Errorf("%w: missing email", ErrUnknownProfileShape)
		}
		profile = models.Profile{
			Email:      strings.TrimSpace(u.Email),
			Name:       u.Name,
			GivenName:  u.GivenName,
			FamilyName: u.FamilyName,
			Picture:    u.Photo,
		}
	case p.UID != "" && p.PhoneNumber != "":
		shape = shapePhone
		profile = models.Profile{ExternalUID: p.UID, Phone: strings.TrimSpace(p.PhoneNumber)}
	default:
		return models.Profile{}, shapeUnknown, ErrUnknownProfileShape
	}

	profile.DeviceToken = p.PushNotificationToken
	if p.Location != nil && (p.Location.Latitude != 0 || p.Location.Longitude != 0) {
		if !p.Location.Coordinate().Valid() {
			return models.Profile{}, shapeUnknown, fmt.Errorf("%w: invalid location", ErrUnknownProfileShape)
		}
		profile.Location = p.Location
	}
	return profile, shape, nil
}
