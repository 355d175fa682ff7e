package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const maxPhotoUpload = 10 << 20

type userProfile struct {
	Email      string  `json:"email"`
	FullName   *string `json:"full_name"`
	Bio        *string `json:"bio"`
	Phone      *string `json:"phone"`
	PhotoURL   *string `json:"photo_url"`
	FacebookID *string `json:"facebook_id"`
}

func profileOf(u *models.User) userProfile {
	return userProfile{
		Email:      u.Email,
		FullName:   u.FullName,
		Bio:        u.Bio,
		Phone:      u.Phone,
		PhotoURL:   u.PhotoURL,
		FacebookID: u.FacebookID,
	}
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email" validate:"omitnil,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type photoURLRequest struct {
	PhotoURL string `json:"photo_url"`
}

// Handlers below run behind requireIdentity, so the identity is present.
// Unexpected failures answer the generic 401 like the guard does.

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	user, err := s.deps.Profiles.GetProfile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}
	if err := s.check(req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	user, err := s.deps.Profiles.UpdateProfile(r.Context(), id.Email, models.ProfileUpdate{
		FullName: req.FullName,
		Bio:      req.Bio,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		s.profileFail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	user, err := s.deps.Profiles.UploadPhoto(r.Context(), id.Email, header.Filename, file)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			s.fail(w, r, err, http.StatusUnprocessableEntity, "Uploaded file is not an image")
			return
		}
		s.profileFail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}
	if err := s.check(req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	if err := s.deps.Profiles.ChangePassword(r.Context(), id.Email, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.fail(w, r, err, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		s.fail(w, r, err, http.StatusUnauthorized, "Could not update password")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Password updated successfully"})
}

// updatePhotoURL accepts either a bare JSON string or {"photo_url": "..."}.
func (s *Server) updatePhotoURL(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}
	var photoURL string
	if err := json.Unmarshal(raw, &photoURL); err != nil {
		var req photoURLRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.PhotoURL == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "photo_url is required")
			return
		}
		photoURL = req.PhotoURL
	}

	user, err := s.deps.Profiles.UpdatePhotoURL(r.Context(), id.Email, photoURL)
	if err != nil {
		s.profileFail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) profileFail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.fail(w, r, err, http.StatusNotFound, "User not found")
	case errors.Is(err, common.ErrorConflict):
		s.fail(w, r, err, http.StatusBadRequest, "Email already registered")
	default:
		s.fail(w, r, err, http.StatusUnauthorized, detailInvalidCredentials)
	}
}
