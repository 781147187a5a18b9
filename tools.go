//go:build tools

package tools

// mockery v2 is used as an installed binary (not via go run), so no
// import is needed. Run: mockery (from the repository root) to regenerate
// pkg/tunnel/mocks from .mockery.yaml.
