package content

import "errors"

var (
	// ErrMissingProject is returned when no project ID or endpoint is configured.
	ErrMissingProject = errors.New("content client: project id is required")

	// ErrMissingDataset is returned when no dataset is configured.
	ErrMissingDataset = errors.New("content client: dataset is required")

	// ErrPreviewToken is returned when a preview query is issued without an API token.
	ErrPreviewToken = errors.New("content client: preview requires an api token")
)
