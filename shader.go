package framecomp

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// Shader program names under the shader directory. Each program is a
// pair of files <name>.vert.spv and <name>.frag.spv.
const (
	ProgramScene      = "scene"
	ProgramGrayscale  = "grayscale"
	ProgramComparator = "comparator"
)

// Programs lists every program the renderer loads.
var Programs = []string{ProgramScene, ProgramGrayscale, ProgramComparator}

const spirvMagic = 0x07230203

// ShaderCode is the SPIR-V of one vertex and fragment stage pair.
type ShaderCode struct {
	Vertex   []byte
	Fragment []byte
}

// Validate checks that both stages look like SPIR-V.
func (c ShaderCode) Validate() error {
	if err := checkSPIRV(c.Vertex); err != nil {
		return errors.Wrap(err, "vertex stage")
	}
	if err := checkSPIRV(c.Fragment); err != nil {
		return errors.Wrap(err, "fragment stage")
	}
	return nil
}

func checkSPIRV(code []byte) error {
	if len(code) == 0 {
		return invalidf("shader code missing")
	}
	if len(code)%4 != 0 {
		return invalidf("shader code length %d is not a multiple of 4", len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic {
		return invalidf("shader code is not SPIR-V")
	}
	return nil
}

// ShaderLibrary reads compiled programs from a directory.
type ShaderLibrary struct {
	Dir string
}

// Load reads the program called name.
func (l ShaderLibrary) Load(name string) (ShaderCode, error) {
	var code ShaderCode
	var err error
	if code.Vertex, err = os.ReadFile(l.Path(name, "vert")); err != nil {
		return code, errors.Wrapf(err, "load shader %s", name)
	}
	if code.Fragment, err = os.ReadFile(l.Path(name, "frag")); err != nil {
		return code, errors.Wrapf(err, "load shader %s", name)
	}
	return code, errors.Wrapf(code.Validate(), "load shader %s", name)
}

// LoadAll reads every program in Programs.
func (l ShaderLibrary) LoadAll() (map[string]ShaderCode, error) {
	out := make(map[string]ShaderCode, len(Programs))
	for _, name := range Programs {
		code, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		out[name] = code
	}
	return out, nil
}

// Path returns the file holding one stage of a program.
func (l ShaderLibrary) Path(name, stage string) string {
	return filepath.Join(l.Dir, name+"."+stage+".spv")
}

// LoadShaderModule creates a shader module from SPIR-V bytes.
func LoadShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	if err := checkSPIRV(code); err != nil {
		return vk.NullShaderModule, err
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if err := NewError("vkCreateShaderModule", ret); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}

// ShaderProgram holds the modules of one program. Modules are only needed
// while pipelines are created.
type ShaderProgram struct {
	device   vk.Device
	Vertex   vk.ShaderModule
	Fragment vk.ShaderModule
}

// NewShaderProgram creates modules for both stages of code.
func NewShaderProgram(device vk.Device, code ShaderCode) (*ShaderProgram, error) {
	vert, err := LoadShaderModule(device, code.Vertex)
	if err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	frag, err := LoadShaderModule(device, code.Fragment)
	if err != nil {
		vk.DestroyShaderModule(device, vert, nil)
		return nil, errors.Wrap(err, "fragment stage")
	}
	return &ShaderProgram{device: device, Vertex: vert, Fragment: frag}, nil
}

// Stages returns the stage create infos with entry point main.
func (p *ShaderProgram) Stages() []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: p.Vertex,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: p.Fragment,
			PName:  safeString("main"),
		},
	}
}

func (p *ShaderProgram) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	vk.DestroyShaderModule(p.device, p.Vertex, nil)
	vk.DestroyShaderModule(p.device, p.Fragment, nil)
	p.device = nil
}
