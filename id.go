package balance

import "github.com/niobium-nz/balance/id"

// ID is the primary identifier type for stored balance entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
