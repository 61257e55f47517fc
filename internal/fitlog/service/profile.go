package service

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/url"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/media"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/slogx"
)

type ProfileService struct {
	Store store.Store
	Media *media.Store
}

// ProfileView is everything the profile page shows about one user.
type ProfileView struct {
	User    domain.User
	Profile domain.Profile
	Counts  map[domain.Category]int
}

func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return s.Store.Profiles().GetProfile(ctx, userID)
}

// View loads username's profile for actor, who must be that user or an admin.
func (s *ProfileService) View(ctx context.Context, actor domain.User, username string) (ProfileView, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return ProfileView{}, err
	}
	if !actor.CanAccess(u.ID) {
		return ProfileView{}, ErrForbidden
	}

	p, err := s.Store.Profiles().GetProfile(ctx, u.ID)
	if err != nil {
		return ProfileView{}, err
	}
	counts, err := s.Store.Workouts().CountByCategory(ctx, u.ID)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{User: u, Profile: p, Counts: counts}, nil
}

// UpdatePreferences binds and stores the settings form for userID.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, v url.Values) (domain.Profile, error) {
	p, err := s.Store.Profiles().GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	f, errs := PreferencesFormFrom(v)
	for field, msgs := range check(f) {
		if !errs.Has(field) {
			errs[field] = msgs
		}
	}
	if err := errs.orNil(); err != nil {
		return p, err
	}

	p.Weight = f.Weight
	p.GoalWeight = f.GoalWeight
	p.WeightUnit = f.WeightUnit
	p.DistanceUnit = f.DistanceUnit
	p.Hidden = make(map[domain.Category]bool, len(domain.Categories))
	for _, c := range f.Hidden {
		p.Hidden[c] = true
	}

	if err := s.Store.Profiles().UpdatePreferences(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// SetAvatar processes an uploaded image and points the profile at it.
// Problems with the image itself come back as FormErrors on "image".
func (s *ProfileService) SetAvatar(ctx context.Context, userID string, r io.Reader) error {
	img, err := CheckAvatar(r)
	if err != nil {
		return err
	}
	return s.StoreAvatar(ctx, userID, img)
}

// CheckAvatar decodes and thumbnails an upload without storing anything, so
// callers can reject a bad image before touching other state.
func CheckAvatar(r io.Reader) (image.Image, error) {
	img, err := media.DecodeAvatar(r)
	if err != nil {
		errs := FormErrors{}
		switch {
		case errors.Is(err, media.ErrTooLarge):
			errs.Add("image", "The image is too large. Upload a file of at most 5 MB.")
		case errors.Is(err, media.ErrUnsupported), errors.Is(err, media.ErrUndecodable):
			errs.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		default:
			return nil, err
		}
		return nil, errs
	}
	return img, nil
}

// StoreAvatar writes an image from CheckAvatar and points the profile at it.
func (s *ProfileService) StoreAvatar(ctx context.Context, userID string, img image.Image) error {
	rel, err := s.Media.WriteAvatar(userID, img)
	if err != nil {
		return err
	}
	if err := s.Store.Profiles().UpdateImage(ctx, userID, rel); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("avatar updated", slog.String("user_id", userID))
	return nil
}
