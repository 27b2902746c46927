package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/baboon/internal/compiler"
)

// LoadMode selects whether LoadSpecs stops at the first bad definition.
type LoadMode int

const (
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll keeps compiling after errors so that
	// validate can report every broken topic at once.
	LoadModeCollectAll
)

// LoadResult is the merged spec of a directory and the files it came from.
type LoadResult struct {
	Spec      *compiler.Spec
	CUEValue  cue.Value // The raw CUE value, zero when the directory has no CUE files
	CUEFiles  []string
	DataFiles []string // YAML and JSON topic files
}

// FileCount is the number of spec files found.
func (r *LoadResult) FileCount() int {
	return len(r.CUEFiles) + len(r.DataFiles)
}

// LoadError is a coded loader error.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // valid for CUE sources only
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads the topics and net of a specs directory. The *.cue files
// of the directory form one CUE package; every *.yaml, *.yml and *.json
// file is a topic file. At most one net may be declared across all files.
//
// A nil result means the directory itself could not be used.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, dataFiles, err := FindSpecFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 && len(dataFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no spec files found in %s", dir)}}
	}

	result := &LoadResult{
		Spec:      &compiler.Spec{},
		CUEFiles:  cueFiles,
		DataFiles: dataFiles,
	}

	var errs []error
	// add records err and reports whether loading should stop.
	add := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if len(cueFiles) > 0 {
		value, err := buildCUE(dir)
		if err != nil {
			return nil, []error{err}
		}
		result.CUEValue = value
		if stop := compileCUE(value, result.Spec, add); stop {
			return result, errs
		}
	}

	for _, path := range dataFiles {
		file, err := compiler.LoadFile(path)
		if err != nil {
			if add(convertCompileError(err, filepath.Base(path))) {
				return result, errs
			}
			continue
		}
		if file.Net != nil && result.Spec.Net != nil {
			if add(&LoadError{Code: ErrCodeDuplicateNet, Message: fmt.Sprintf("%s: a net is already declared", filepath.Base(path))}) {
				return result, errs
			}
			file.Net = nil
		}
		result.Spec.Merge(file)
	}

	if len(result.Spec.Topics) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no topics found in specs"})
	}
	return result, errs
}

func buildCUE(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// compileCUE compiles every topic and the net of value into spec. It
// returns true when add asked to stop.
func compileCUE(value cue.Value, spec *compiler.Spec, add func(error) bool) bool {
	topicsVal := value.LookupPath(cue.ParsePath("topic"))
	if topicsVal.Exists() {
		iter, err := topicsVal.Fields()
		if err != nil {
			if add(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating topics: %v", err)}) {
				return true
			}
		} else {
			for iter.Next() {
				t, err := compiler.CompileTopic(iter.Value())
				if err != nil {
					if add(convertCompileError(err, "topic."+iter.Label())) {
						return true
					}
					continue
				}
				spec.Topics = append(spec.Topics, *t)
			}
		}
	}

	netVal := value.LookupPath(cue.ParsePath("net"))
	if netVal.Exists() {
		net, err := compiler.CompileNet(netVal)
		if err != nil {
			return add(convertCompileError(err, "net"))
		}
		spec.Net = net
	}
	return false
}

// FindSpecFiles returns the CUE files and the YAML/JSON topic files
// directly inside dir, each sorted by name. Subdirectories are not
// scanned: the CUE files of dir form a single package.
func FindSpecFiles(dir string) (cueFiles, dataFiles []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch {
		case compiler.IsCUEFile(path):
			cueFiles = append(cueFiles, path)
		case compiler.IsSpecFile(path):
			dataFiles = append(dataFiles, path)
		}
	}
	sort.Strings(cueFiles)
	sort.Strings(dataFiles)
	return cueFiles, dataFiles, nil
}

// convertCompileError codes err by its compiler field, prefixed with context.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Loader and compile error codes shared by validate and compile.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002" // directory unreadable
	ErrCodeNoFiles     = "E003" // No spec files found
	ErrCodeLoadFailed  = "E004" // cue/load could not read the package
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // compile -o could not write

	// Topic compile errors
	ErrCodeInvalidPermission = "E101" // permission missing or not strings
	ErrCodeInvalidGuards     = "E102" // guardCallbacks not a list of string lists
	ErrCodeInvalidFire       = "E103" // fireCallbacks not strings
	ErrCodeTopicName         = "E104" // topic name missing

	// Net compile errors
	ErrCodeInvalidNet   = "E110" // malformed places, transitions or guards
	ErrCodeDuplicateNet = "E111" // more than one net declared
)

// MapFieldToErrorCode codes a compiler field path. Field paths from CUE
// carry a topic prefix (topic.one.permission), YAML ones an index
// (topics[0].permission); both end in the field name.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "permission", strings.HasSuffix(field, ".permission"):
		return ErrCodeInvalidPermission
	case field == "guardCallbacks", strings.HasSuffix(field, ".guardCallbacks"):
		return ErrCodeInvalidGuards
	case field == "fireCallbacks", strings.HasSuffix(field, ".fireCallbacks"):
		return ErrCodeInvalidFire
	case strings.HasSuffix(field, ".name"):
		return ErrCodeTopicName
	case field == "net", strings.HasPrefix(field, "net."):
		return ErrCodeInvalidNet
	default:
		return ErrCodeGeneric
	}
}
