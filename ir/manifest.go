package ir

import (
	"encoding/json"

	"github.com/opencontainers/go-digest"
)

// ImageConfig accumulates the image configuration metadata a stage's
// MetadataOperations mutate: environment, working directory, user,
// entrypoint/cmd, labels, exposed ports, etc.
type ImageConfig struct {
	Env          []string          `json:"env,omitempty"`
	WorkingDir   string            `json:"workingDir,omitempty"`
	User         string            `json:"user,omitempty"`
	Entrypoint   []string          `json:"entrypoint,omitempty"`
	Cmd          []string          `json:"cmd,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	ExposedPorts []string          `json:"exposedPorts,omitempty"`
	StopSignal   string            `json:"stopSignal,omitempty"`
	Shell        []string          `json:"shell,omitempty"`
	Volumes      []string          `json:"volumes,omitempty"`
	OnBuild      []string          `json:"onBuild,omitempty"`
	Healthcheck  *Healthcheck      `json:"healthcheck,omitempty"`
}

// Clone returns a deep-enough copy for forking into a child execution
// context: slices and maps are copied so neither context observes the
// other's subsequent mutations.
func (c *ImageConfig) Clone() *ImageConfig {
	if c == nil {
		return &ImageConfig{}
	}
	out := &ImageConfig{
		WorkingDir: c.WorkingDir,
		User:       c.User,
		StopSignal: c.StopSignal,
	}
	out.Env = append([]string(nil), c.Env...)
	out.Entrypoint = append([]string(nil), c.Entrypoint...)
	out.Cmd = append([]string(nil), c.Cmd...)
	out.ExposedPorts = append([]string(nil), c.ExposedPorts...)
	out.Shell = append([]string(nil), c.Shell...)
	out.Volumes = append([]string(nil), c.Volumes...)
	out.OnBuild = append([]string(nil), c.OnBuild...)
	if c.Labels != nil {
		out.Labels = make(map[string]string, len(c.Labels))
		for k, v := range c.Labels {
			out.Labels[k] = v
		}
	}
	if c.Healthcheck != nil {
		hc := *c.Healthcheck
		hc.Test = append([]string(nil), c.Healthcheck.Test...)
		out.Healthcheck = &hc
	}
	return out
}

// CanonicalDigest computes the stable go-digest of the config's canonical
// JSON encoding: a real digest of the final image config instead of a
// zero-filled placeholder.
func (c *ImageConfig) CanonicalDigest() digest.Digest {
	if c == nil {
		c = &ImageConfig{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		panic("ir: image config digest marshal failed: " + err.Error())
	}
	return digest.FromBytes(b)
}

// ImageManifest is the per-platform build artifact the scheduler produces.
type ImageManifest struct {
	Digest       digest.Digest
	Size         int64
	ConfigDigest digest.Digest
	Layers       []digest.Digest
}
