package repository

import "github.com/callsight/callsight/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMappings seeds phone-to-client mappings at construction. Useful for
// local development and tests, where provisioning has no out-of-band path.
func WithMappings(mappings map[string]string) Option {
	return func(s *MemoryStore) {
		for phone, clientID := range mappings {
			s.mappings[phone] = model.Mapping{PhoneNumber: phone, ClientID: clientID}
		}
	}
}
