package gradespec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Raw mirrors the grading specification file. Pointer fields distinguish a
// key that is absent from one that is present but empty.
type Raw struct {
	AssignmentID  *string  `json:"assignment_id" toml:"assignment_id" yaml:"assignment_id"`
	Mode          *string  `json:"mode" toml:"mode" yaml:"mode"`
	TotalPoints   *float64 `json:"total_points" toml:"total_points" yaml:"total_points"`
	PointsPerLine *float64 `json:"points_per_line" toml:"points_per_line" yaml:"points_per_line"`
	Timeout       *float64 `json:"timeout" toml:"timeout" yaml:"timeout"`
	CaseSensitive *bool    `json:"case_sensitive" toml:"case_sensitive" yaml:"case_sensitive"`

	// compiled
	Compiler          *string  `json:"compiler" toml:"compiler" yaml:"compiler"`
	Generator         *string  `json:"generator" toml:"generator" yaml:"generator"`
	GeneratorArgs     []string `json:"generator_args" toml:"generator_args" yaml:"generator_args"`
	GeneratorOutput   *string  `json:"generator_output" toml:"generator_output" yaml:"generator_output"`
	ReferenceExe      *string  `json:"reference_exe" toml:"reference_exe" yaml:"reference_exe"`
	ReferenceOutput   *string  `json:"reference_exe_output" toml:"reference_exe_output" yaml:"reference_exe_output"`
	ReferenceArgs     []string `json:"reference_exe_args" toml:"reference_exe_args" yaml:"reference_exe_args"`
	StudentArgs       []string `json:"student_exe_args" toml:"student_exe_args" yaml:"student_exe_args"`
	Stdin             *bool    `json:"stdin" toml:"stdin" yaml:"stdin"` // ignored, stream mode always feeds stdin
	Stdout            *bool    `json:"stdout" toml:"stdout" yaml:"stdout"`
	OutputFilename    *string  `json:"output_filename" toml:"output_filename" yaml:"output_filename"`
	CleanupExtensions []string `json:"cleanup_extensions" toml:"cleanup_extensions" yaml:"cleanup_extensions"`

	// interpreted
	Interpreter       *string  `json:"interpreter" toml:"interpreter" yaml:"interpreter"`
	RequiredFiles     []string `json:"required_files" toml:"required_files" yaml:"required_files"`
	ReferenceSolution *string  `json:"reference_solution" toml:"reference_solution" yaml:"reference_solution"`
	MainFile          *string  `json:"main_file" toml:"main_file" yaml:"main_file"`
	CommonFile        *string  `json:"common_file" toml:"common_file" yaml:"common_file"`

	// external
	ExternalGrading *bool    `json:"external_grading" toml:"external_grading" yaml:"external_grading"`
	BuildCommand    *string  `json:"build_step_command" toml:"build_step_command" yaml:"build_step_command"`
	CompileCommand  *string  `json:"compile_step_command" toml:"compile_step_command" yaml:"compile_step_command"`
	RunCommand      *string  `json:"run_step_command" toml:"run_step_command" yaml:"run_step_command"`
	StudentFilename *string  `json:"student_filename" toml:"student_filename" yaml:"student_filename"`
	GradeFile       *string  `json:"file_with_grade" toml:"file_with_grade" yaml:"file_with_grade"`
	FilesToUpload   []string `json:"files_to_upload" toml:"files_to_upload" yaml:"files_to_upload"`
	CleanupDirs     []string `json:"cleanup_dirs" toml:"cleanup_dirs" yaml:"cleanup_dirs"`
}

// Load reads and validates a specification file. The format is chosen by
// extension: .toml, .yaml/.yml, anything else is JSON.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grading spec: %w", err)
	}

	var raw Raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&raw)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&raw)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&raw)
	}
	if err != nil {
		return nil, &ConfigError{File: path, Problems: []string{err.Error()}}
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spec directory: %w", err)
	}

	spec, err := raw.Build(dir)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.File = path
		}
		return nil, err
	}
	return spec, nil
}

// Build validates the raw fields and constructs a Spec. Every missing
// required field is reported, not just the first.
func (r *Raw) Build(dir string) (*Spec, error) {
	v := &validator{}

	mode, err := r.mode()
	if err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}

	spec := &Spec{
		AssignmentID: deref(r.AssignmentID),
		Mode:         mode,
		Timeout:      DefaultTimeout,
		Dir:          dir,
	}
	if r.CaseSensitive != nil {
		spec.CaseSensitive = *r.CaseSensitive
	}
	if r.Timeout != nil {
		if *r.Timeout <= 0 {
			v.problem("timeout must be positive, got %v", *r.Timeout)
		}
		spec.Timeout = time.Duration(*r.Timeout * float64(time.Second))
	}

	if r.TotalPoints == nil {
		v.missing("total_points")
	} else {
		spec.TotalPoints = *r.TotalPoints
		if spec.TotalPoints <= 0 {
			v.problem("total_points must be positive, got %v", spec.TotalPoints)
		}
	}

	if mode == ModeCompiled || mode == ModeInterpreted {
		if r.PointsPerLine == nil {
			v.missing("points_per_line")
		} else {
			spec.PointsPerLine = *r.PointsPerLine
			if spec.PointsPerLine < 0 {
				v.problem("points_per_line must not be negative, got %v", spec.PointsPerLine)
			}
		}
	}

	switch mode {
	case ModeCompiled:
		c := &Compiled{
			Compiler:          v.str("compiler", r.Compiler),
			Generator:         v.str("generator", r.Generator),
			GeneratorArgs:     r.GeneratorArgs,
			GeneratorOutput:   v.str("generator_output", r.GeneratorOutput),
			ReferenceExe:      v.str("reference_exe", r.ReferenceExe),
			ReferenceOutput:   v.str("reference_exe_output", r.ReferenceOutput),
			ReferenceArgs:     r.ReferenceArgs,
			StudentArgs:       r.StudentArgs,
			UsesStdout:        r.Stdout != nil && *r.Stdout,
			CleanupExtensions: r.CleanupExtensions,
		}
		if !c.UsesStdout {
			c.StudentOutput = v.str("output_filename", r.OutputFilename)
		}
		if c.CleanupExtensions == nil {
			fields := strings.Fields(c.Compiler)
			if len(fields) > 0 {
				c.CleanupExtensions = defaultCleanupExtensions(fields[0])
			}
		}
		spec.Compiled = c
	case ModeInterpreted:
		spec.Interpreted = &Interpreted{
			Interpreter:       v.str("interpreter", r.Interpreter),
			RequiredFiles:     v.list("required_files", r.RequiredFiles),
			ReferenceSolution: v.str("reference_solution", r.ReferenceSolution),
			MainFile:          v.str("main_file", r.MainFile),
			CommonFile:        v.str("common_file", r.CommonFile),
		}
	case ModeExternal:
		e := &External{
			BuildCommand:    v.str("build_step_command", r.BuildCommand),
			CompileCommand:  v.str("compile_step_command", r.CompileCommand),
			RunCommand:      v.str("run_step_command", r.RunCommand),
			StudentFilename: v.str("student_filename", r.StudentFilename),
			GradeFile:       v.str("file_with_grade", r.GradeFile),
			FilesToUpload:   v.list("files_to_upload", r.FilesToUpload),
			RequiredFiles:   v.list("required_files", r.RequiredFiles),
			CleanupDirs:     r.CleanupDirs,
		}
		if e.CleanupDirs == nil {
			e.CleanupDirs = []string{"CMakeFiles", "build"}
		}
		spec.External = e
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// mode honours an explicit "mode" key and otherwise infers the mode from
// which of compiler, interpreter or external_grading is present.
func (r *Raw) mode() (Mode, error) {
	if r.Mode != nil {
		switch m := Mode(strings.ToLower(*r.Mode)); m {
		case ModeCompiled, ModeInterpreted, ModeExternal:
			return m, nil
		default:
			return "", fmt.Errorf("unknown mode %q (want compiled, interpreted or external)", *r.Mode)
		}
	}
	switch {
	case r.Compiler != nil:
		return ModeCompiled, nil
	case r.Interpreter != nil:
		return ModeInterpreted, nil
	case r.ExternalGrading != nil && *r.ExternalGrading:
		return ModeExternal, nil
	}
	return "", errors.New("cannot determine mode: set one of mode, compiler, interpreter or external_grading")
}

type validator struct {
	missingFields []string
	problems      []string
}

func (v *validator) str(field string, val *string) string {
	if val == nil || strings.TrimSpace(*val) == "" {
		v.missing(field)
		return ""
	}
	return *val
}

func (v *validator) list(field string, val []string) []string {
	if len(val) == 0 {
		v.missing(field)
	}
	return val
}

func (v *validator) missing(field string) {
	v.missingFields = append(v.missingFields, field)
}

func (v *validator) problem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.missingFields) == 0 && len(v.problems) == 0 {
		return nil
	}
	return &ConfigError{Missing: v.missingFields, Problems: v.problems}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
