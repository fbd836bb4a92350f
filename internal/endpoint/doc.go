// Package endpoint resolves the sovereign-cloud endpoint setting into a
// validated identity-endpoint descriptor.
//
// The setting accepts either a well-known cloud name ("Azure China",
// "Azure US Government") or an arbitrary absolute URI pointing at a
// compatible identity endpoint. Resolution is pure: it never touches the
// network and never activates anything itself.
package endpoint
