package provider

// Package provider sits at the boundary the resolution engine never
// crosses directly:
//
//	Resolver Aggregate --> Registry.FindFor(storeType) --> Provider --> remote store
//
// A Provider knows nothing about caching, refresh policy, or the event
// bus; it only turns a (SecretReference, AccessCredential) pair into a
// Secret or an error. Everything upstream of FetchSecret — staleness,
// single-flight, rollover detection — is the Resolver Aggregate's job, not
// the provider's.
