package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/ivankudzin/plutonic/backend/internal/pkg/validate"
	meetupssvc "github.com/ivankudzin/plutonic/backend/internal/services/meetups"
)

func TestCreateInviteLimitsMatchService(t *testing.T) {
	base := func() CreateInviteRequest {
		return CreateInviteRequest{
			MatchID:  "6f1c1f5e-0a3a-4d5e-9a61-6a0c2f3b7d11",
			Place:    PlaceRequest{Name: "Cafe"},
			Datetime: time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC),
		}
	}

	atCap := base()
	atCap.Place.Name = strings.Repeat("n", meetupssvc.MaxPlaceName)
	atCap.Place.Address = strings.Repeat("a", meetupssvc.MaxPlaceAddress)
	atCap.Place.Category = strings.Repeat("c", meetupssvc.MaxPlaceCategory)
	atCap.Message = strings.Repeat("m", meetupssvc.MaxMessage)
	if err := validate.Struct(atCap); err != nil {
		t.Fatalf("request at service limits rejected: %v", err)
	}

	over := map[string]func(*CreateInviteRequest){
		"name":     func(r *CreateInviteRequest) { r.Place.Name = strings.Repeat("n", meetupssvc.MaxPlaceName+1) },
		"address":  func(r *CreateInviteRequest) { r.Place.Address = strings.Repeat("a", meetupssvc.MaxPlaceAddress+1) },
		"category": func(r *CreateInviteRequest) { r.Place.Category = strings.Repeat("c", meetupssvc.MaxPlaceCategory+1) },
		"message":  func(r *CreateInviteRequest) { r.Message = strings.Repeat("m", meetupssvc.MaxMessage+1) },
	}
	for field, mutate := range over {
		req := base()
		mutate(&req)
		if err := validate.Struct(req); err == nil {
			t.Fatalf("%s over the service limit passed validation", field)
		}
	}
}
