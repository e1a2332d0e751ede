package errors

import (
	"github.com/cockroachdb/errors"
)

// Configuration errors.
var (
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrReadConfig               = errors.New("failed to read configuration")
	ErrInvalidRole              = errors.New("invalid message role")
	ErrInvalidPosition          = errors.New("invalid injection position")
	ErrInvalidToolChoice        = errors.New("invalid tool choice")
	ErrInvalidProviderType      = errors.New("invalid provider type")
	ErrInvalidCacheBackend      = errors.New("invalid cache backend")
	ErrProviderNotConfigured    = errors.New("retrieval target is not configured")
	ErrMalformedToolParameters  = errors.New("custom tool parameters are not valid JSON")
	ErrMissingDataSourceID      = errors.New("data source id is required for this provider")
	ErrMissingToolParameters    = errors.New("custom tool parameters are required for this provider")
	ErrInvalidFilterExpression  = errors.New("invalid filter expression")
	ErrFilterNotFound           = errors.New("filter not found")
	ErrFilterEvaluation         = errors.New("failed to evaluate filter")
	ErrUnsupportedProvider      = errors.New("unsupported provider")
	ErrRetrievalDisabled        = errors.New("retrieval is disabled in configuration")
	ErrAPIKeyNotFound           = errors.New("API key not found in environment")
	ErrProviderAlreadyDefined   = errors.New("provider is already registered")
	ErrInvalidMacroContextValue = errors.New("invalid macro context value")
	ErrInvalidDuration          = errors.New("invalid duration")
)

// Pipeline and collaborator errors.
var (
	ErrRetrievalFailed   = errors.New("retrieval request failed")
	ErrNoResponseContent = errors.New("no content in response")
	ErrLookupFailed      = errors.New("lore lookup failed")
	ErrLoreBookRead      = errors.New("failed to read lorebook")
	ErrLoreBookParse     = errors.New("failed to parse lorebook")
	ErrTokenizer         = errors.New("failed to initialize tokenizer")
	ErrTranscriptFailed  = errors.New("failed to read transcript")
	ErrCacheFailed       = errors.New("retrieval cache operation failed")
	ErrCacheMiss         = errors.New("cache miss")
	ErrNilRequest        = errors.New("request is nil")
)

// Request body errors.
var (
	ErrInvalidRequestBody = errors.New("request body is not valid JSON")
	ErrMissingMessages    = errors.New("request body has no messages array")
	ErrWriteRequestBody   = errors.New("failed to write request body")
)

// Storage errors.
var (
	ErrStorageOpen      = errors.New("failed to open storage")
	ErrStorageMigration = errors.New("failed to migrate storage")
	ErrStorageQuery     = errors.New("storage query failed")
	ErrChatNotFound     = errors.New("chat not found")
	ErrChatIDEmpty      = errors.New("chat id must not be empty")
)
