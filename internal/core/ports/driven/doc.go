// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceAPI: Fetches REST details and paginated graph queries from GitHub
//   - Normaliser: Converts raw payloads into canonical records
//   - EntityStore: Repository, organization and user persistence
//   - RunStore: Run lifecycle persistence
//   - LogStore: Append-only event log persistence
//   - Clock: Time source and delays
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Renderer: Converts README markdown to HTML. Without it only the raw text is stored.
//   - RequestAuditor: Receives one record per API request.
//   - ConfigStore: Application configuration. Defaults apply when absent.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
