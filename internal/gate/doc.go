// Package gate holds the authorization primitives: permissions in
// "resource:action" form, profiles that group them, resolvers that map a
// subject to its profile and a HybridGate that checks role and permission
// requirements followed by optional per-object policies.
//
// The package has no dependency on the application's models; the subject
// type is a type parameter (a user ID in this service).
package gate
