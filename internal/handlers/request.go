package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"sales-dashboard/internal/analysis"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const (
	uploadField     = "file"
	multipartMemory = 8 << 20
	idleMessage     = "Please upload a data file to begin analysis."
)

// sessions ties the session store to the visitor's cookie.
type sessions struct {
	store *session.Store
	cfg   config.SessionConfig
}

func (s sessions) current(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return s.store.Get(c.Value)
}

// ensure returns the visitor's session, starting one and setting its cookie if needed.
func (s sessions) ensure(w http.ResponseWriter, r *http.Request) *session.Session {
	if sess, ok := s.current(r); ok {
		return sess
	}

	sess := s.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// selectionFrom maps a menu label and toggle to a Selection. Unknown or empty labels
// fall back to the first analysis.
func selectionFrom(label string, revenue bool) services.Selection {
	kind, ok := analysis.ParseKind(label)
	if !ok {
		kind = analysis.Kinds()[0]
	}
	return services.Selection{Analysis: kind, Revenue: revenue}
}

// apiSelection is selectionFromQuery for the JSON API, where an explicit but unknown
// label is rejected instead of falling back.
func apiSelection(r *http.Request) (services.Selection, bool) {
	sel := selectionFromQuery(r)
	if label := r.URL.Query().Get("analysis"); label != "" && label != sel.Analysis.String() {
		return sel, false
	}
	return sel, true
}

func selectionFromQuery(r *http.Request) services.Selection {
	q := r.URL.Query()
	revenue, _ := strconv.ParseBool(q.Get("revenue"))
	return selectionFrom(q.Get("analysis"), revenue)
}

type upload struct {
	body     io.ReadCloser
	filename string
}

// readUpload pulls the uploaded file out of a multipart request, enforcing the size
// limit and the allowed extensions. A request without a file yields dataset.ErrNoFile.
func readUpload(w http.ResponseWriter, r *http.Request, cfg *config.Config) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Upload.MaxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.PayloadTooLarge(fmt.Sprintf("File exceeds the %s upload limit", formatBytes(cfg.Upload.MaxBytes)))
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, apperrors.BadRequestWrap(err, "Expected a multipart/form-data upload")
		}
		return nil, apperrors.BadRequestWrap(err, "Could not read upload")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, dataset.ErrNoFile
		}
		return nil, apperrors.BadRequestWrap(err, "Could not read upload")
	}

	if !cfg.AllowsUpload(header.Filename) {
		file.Close()
		return nil, apperrors.UnsupportedFile(fmt.Sprintf("Unsupported file type %q", header.Filename))
	}

	return &upload{body: file, filename: header.Filename}, nil
}

// toAppError classifies domain errors for JSON responses.
func toAppError(err error) *apperrors.AppError {
	var (
		appErr     *apperrors.AppError
		missing    *analysis.MissingColumnError
		nonNumeric *dataset.NonNumericError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &missing):
		return apperrors.MissingColumn(missing)
	case errors.As(err, &nonNumeric):
		return apperrors.NonNumeric(err)
	case errors.Is(err, analysis.ErrNoValues):
		return apperrors.ValidationWrap(err, err.Error())
	case errors.Is(err, services.ErrNoDataset):
		return apperrors.NoDataset(idleMessage)
	case errors.Is(err, dataset.ErrNoFile):
		return apperrors.BadRequest(idleMessage)
	default:
		return apperrors.InternalWrap(err, "An unexpected error occurred")
	}
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
