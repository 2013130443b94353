// Package ir defines the immutable build graph contract the scheduler
// consumes: stages, nodes, operations, platforms and their dependencies.
package ir

import (
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Platform identifies a target OS/architecture/variant triple. Two
// platforms are equal when all three fields match; an empty Variant
// matches only an empty Variant.
type Platform struct {
	OS           string
	Architecture string
	Variant      string
}

// Equal reports whether p and o denote the same platform.
func (p Platform) Equal(o Platform) bool {
	return p.OS == o.OS && p.Architecture == o.Architecture && p.Variant == o.Variant
}

// String renders the platform the way OCI image refs do: os/arch[/variant].
func (p Platform) String() string {
	if p.Variant != "" {
		return fmt.Sprintf("%s/%s/%s", p.OS, p.Architecture, p.Variant)
	}
	return fmt.Sprintf("%s/%s", p.OS, p.Architecture)
}

// ToOCI converts to the OCI image-spec platform type, for interop with
// registries, manifests and containerd-platforms style matching.
func (p Platform) ToOCI() ocispec.Platform {
	return ocispec.Platform{OS: p.OS, Architecture: p.Architecture, Variant: p.Variant}
}

// PlatformFromOCI converts an OCI image-spec platform into Platform.
func PlatformFromOCI(p ocispec.Platform) Platform {
	return Platform{OS: p.OS, Architecture: p.Architecture, Variant: p.Variant}
}
