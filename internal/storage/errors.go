package storage

import apperrors "github.com/julianstephens/rehab/internal/errors"

var (
	// ErrNotFound is returned when the requested document does not exist
	ErrNotFound = apperrors.New(apperrors.KindNotFound, "not found")
	// ErrAlreadyExists is returned when creating a document whose id is taken
	ErrAlreadyExists = apperrors.New(apperrors.KindValidation, "already exists")
	// ErrNotInitialized is returned by Load before Init has created the store
	ErrNotInitialized = apperrors.New(apperrors.KindInternal, "storage not initialized, run 'rehab init' first")
)
