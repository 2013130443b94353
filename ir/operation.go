package ir

import (
	"encoding/json"

	"github.com/opencontainers/go-digest"
)

// OperationKind discriminates the Operation sum type.
type OperationKind string

const (
	OperationKindImage      OperationKind = "image"
	OperationKindExec       OperationKind = "exec"
	OperationKindFilesystem OperationKind = "filesystem"
	OperationKindMetadata   OperationKind = "metadata"
)

// OperationMetadata carries the data every operation kind shares.
type OperationMetadata struct {
	RetryPolicy RetryPolicy `json:"retryPolicy"`
}

// Operation is the smallest executable unit in the graph. It is a closed
// sum type over {Image, Exec, Filesystem, Metadata}; Unknown operations
// never satisfy this interface and are rejected by the dispatcher instead.
type Operation interface {
	OperationKind() OperationKind
	Metadata() OperationMetadata
	// ContentDigest returns a stable digest over the operation's own
	// content; it must not depend on dependency snapshot state, which
	// is mixed in separately when computing a cache key.
	ContentDigest() digest.Digest
	// Describe renders a single-line human-readable form, e.g.
	// "RUN ...", "COPY src dst", "FROM registry:tag", "ENV k=v".
	Describe() string
}

func canonicalDigest(v any) digest.Digest {
	// json.Marshal of a struct is deterministic (struct-field order),
	// which is all contentDigest needs: stability across repeated calls
	// on semantically equal operations, not cross-language canonicalization.
	b, err := json.Marshal(v)
	if err != nil {
		// Marshaling a value built entirely from strings/slices/ints
		// defined in this package cannot fail; treat it as a broken
		// invariant rather than degrading the cache key silently.
		panic("ir: content digest marshal failed: " + err.Error())
	}
	return digest.FromBytes(b)
}

// ImageSourceKind enumerates where an ImageOperation's base filesystem
// state comes from.
type ImageSourceKind string

const (
	ImageSourceRegistry ImageSourceKind = "registry"
	ImageSourceScratch  ImageSourceKind = "scratch"
	ImageSourceOCILayout ImageSourceKind = "oci-layout"
	ImageSourceTarball  ImageSourceKind = "tarball"
)

// ImageSource identifies the origin of an image base.
type ImageSource struct {
	Kind ImageSourceKind `json:"kind"`
	// Ref is the registry reference for ImageSourceRegistry as written
	// (e.g. "busybox"); ImageExecutor normalizes it at dispatch.
	Ref string `json:"ref,omitempty"`
	// Path is the OCI-layout directory or tarball path for the other
	// non-scratch kinds.
	Path string `json:"path,omitempty"`
}

// ImageOperation realizes a stage's base filesystem state.
type ImageOperation struct {
	Source ImageSource       `json:"source"`
	Meta   OperationMetadata `json:"meta"`
}

func (o *ImageOperation) OperationKind() OperationKind     { return OperationKindImage }
func (o *ImageOperation) Metadata() OperationMetadata       { return o.Meta }
func (o *ImageOperation) ContentDigest() digest.Digest      { return canonicalDigest(o) }
func (o *ImageOperation) Describe() string {
	switch o.Source.Kind {
	case ImageSourceScratch:
		return "FROM scratch"
	case ImageSourceOCILayout:
		return "FROM oci-layout:" + o.Source.Path
	case ImageSourceTarball:
		return "FROM tarball:" + o.Source.Path
	default:
		return "FROM " + o.Source.Ref
	}
}

// Mount describes a filesystem mount made visible to an ExecOperation.
type Mount struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	ReadOnly bool   `json:"readOnly"`
}

// Command is the argv/cwd/user triple an ExecOperation runs.
type Command struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	Dir  string   `json:"dir,omitempty"`
	User string   `json:"user,omitempty"`
}

// ExecOperation runs a command against the stage's current snapshot.
type ExecOperation struct {
	Command Command           `json:"command"`
	Mounts  []Mount           `json:"mounts,omitempty"`
	Env     []string          `json:"env,omitempty"`
	Meta    OperationMetadata `json:"meta"`
}

func (o *ExecOperation) OperationKind() OperationKind { return OperationKindExec }
func (o *ExecOperation) Metadata() OperationMetadata   { return o.Meta }
func (o *ExecOperation) ContentDigest() digest.Digest  { return canonicalDigest(o) }
func (o *ExecOperation) Describe() string {
	s := "RUN " + o.Command.Path
	for _, a := range o.Command.Args {
		s += " " + a
	}
	return s
}

// FilesystemAction enumerates the mutation a FilesystemOperation performs.
type FilesystemAction string

const (
	FilesystemActionCopy     FilesystemAction = "copy"
	FilesystemActionAdd      FilesystemAction = "add"
	FilesystemActionRemove   FilesystemAction = "remove"
	FilesystemActionMkdir    FilesystemAction = "mkdir"
	FilesystemActionSymlink  FilesystemAction = "symlink"
	FilesystemActionHardlink FilesystemAction = "hardlink"
)

// FilesystemSourceKind enumerates where a FilesystemOperation's input
// bytes come from.
type FilesystemSourceKind string

const (
	FilesystemSourceContext FilesystemSourceKind = "context"
	FilesystemSourceStage   FilesystemSourceKind = "stage"
	FilesystemSourceImage   FilesystemSourceKind = "image"
	FilesystemSourceURL     FilesystemSourceKind = "url"
	FilesystemSourceGit     FilesystemSourceKind = "git"
	FilesystemSourceInline  FilesystemSourceKind = "inline"
	FilesystemSourceScratch FilesystemSourceKind = "scratch"
)

// FilesystemSource identifies the input to a FilesystemOperation.
type FilesystemSource struct {
	Kind FilesystemSourceKind `json:"kind"`
	// Ref names a stage (FilesystemSourceStage, resolved per §4.1 step 2:
	// by name, by positional index, or "previous") or an image
	// (FilesystemSourceImage, a registry reference).
	Ref   string   `json:"ref,omitempty"`
	Paths []string `json:"paths,omitempty"`
	URL   string   `json:"url,omitempty"`
	// Inline carries literal content for FilesystemSourceInline.
	Inline []byte `json:"inline,omitempty"`
}

// FilesystemOperation applies one filesystem mutation to the stage's
// current snapshot.
type FilesystemOperation struct {
	Action FilesystemAction  `json:"action"`
	Source FilesystemSource  `json:"source"`
	Dest   string            `json:"dest"`
	Meta   OperationMetadata `json:"meta"`
}

func (o *FilesystemOperation) OperationKind() OperationKind { return OperationKindFilesystem }
func (o *FilesystemOperation) Metadata() OperationMetadata  { return o.Meta }
func (o *FilesystemOperation) ContentDigest() digest.Digest { return canonicalDigest(o) }
func (o *FilesystemOperation) Describe() string {
	verb := map[FilesystemAction]string{
		FilesystemActionCopy:     "COPY",
		FilesystemActionAdd:      "ADD",
		FilesystemActionRemove:   "RM",
		FilesystemActionMkdir:    "MKDIR",
		FilesystemActionSymlink:  "SYMLINK",
		FilesystemActionHardlink: "HARDLINK",
	}[o.Action]
	if len(o.Source.Paths) > 0 {
		return verb + " " + o.Source.Paths[0] + " " + o.Dest
	}
	return verb + " " + o.Dest
}

// MetadataAction enumerates which piece of image configuration a
// MetadataOperation mutates.
type MetadataAction string

const (
	MetadataActionEnv         MetadataAction = "env"
	MetadataActionWorkdir     MetadataAction = "workdir"
	MetadataActionUser        MetadataAction = "user"
	MetadataActionEntrypoint  MetadataAction = "entrypoint"
	MetadataActionCmd         MetadataAction = "cmd"
	MetadataActionLabels      MetadataAction = "labels"
	MetadataActionArg         MetadataAction = "arg"
	MetadataActionExpose      MetadataAction = "expose"
	MetadataActionStopSignal  MetadataAction = "stopsignal"
	MetadataActionHealthcheck MetadataAction = "healthcheck"
	MetadataActionShell       MetadataAction = "shell"
	MetadataActionVolume      MetadataAction = "volume"
	MetadataActionOnBuild     MetadataAction = "onbuild"
)

// Healthcheck mirrors the OCI/Dockerfile HEALTHCHECK fields.
type Healthcheck struct {
	Test        []string      `json:"test,omitempty"`
	Interval    int64         `json:"interval,omitempty"` // nanoseconds
	Timeout     int64         `json:"timeout,omitempty"`
	StartPeriod int64         `json:"startPeriod,omitempty"`
	Retries     int           `json:"retries,omitempty"`
}

// MetadataOperation mutates the build context's image config, environment,
// working directory or user without touching the filesystem snapshot.
type MetadataOperation struct {
	Action MetadataAction `json:"action"`
	// KeyValues carries ENV/LABEL/ARG entries ("key", "value" pairs).
	KeyValues []KV `json:"keyValues,omitempty"`
	// Args carries CMD/ENTRYPOINT/SHELL/VOLUME/EXPOSE/ONBUILD argv-shaped data.
	Args []string `json:"args,omitempty"`
	// Value carries a single scalar (WORKDIR path, USER spec, STOPSIGNAL).
	Value       string       `json:"value,omitempty"`
	Healthcheck *Healthcheck `json:"healthcheck,omitempty"`
	Meta        OperationMetadata `json:"meta"`
}

// KV is an ordered key/value pair, used where map ordering would otherwise
// be lost (ENV and LABEL both require last-writer-wins in declared order).
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (o *MetadataOperation) OperationKind() OperationKind { return OperationKindMetadata }
func (o *MetadataOperation) Metadata() OperationMetadata  { return o.Meta }
func (o *MetadataOperation) ContentDigest() digest.Digest { return canonicalDigest(o) }
func (o *MetadataOperation) Describe() string {
	switch o.Action {
	case MetadataActionEnv:
		s := "ENV"
		for _, kv := range o.KeyValues {
			s += " " + kv.Key + "=" + kv.Value
		}
		return s
	case MetadataActionWorkdir:
		return "WORKDIR " + o.Value
	case MetadataActionUser:
		return "USER " + o.Value
	case MetadataActionEntrypoint:
		return "ENTRYPOINT " + join(o.Args)
	case MetadataActionCmd:
		return "CMD " + join(o.Args)
	default:
		return string(o.Action)
	}
}

func join(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
