package eventstore

import (
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.EventStoreError("could not open event journal database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event journal schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.EventStoreError("failed to append event to journal").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.EventStoreError("failed to query events from journal").Build()

	// ErrDecodePayloadFailed indicates a journaled payload could not be decoded.
	ErrDecodePayloadFailed = errors.EventStoreError("failed to decode event payload").Build()
)
