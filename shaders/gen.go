// Package shaders holds the GLSL sources of the viewer. The compiled .spv
// files are loaded at runtime from the directory given by render.shader_dir.
package shaders

//go:generate glslc -fshader-stage=vert scene.vert -o scene.vert.spv
//go:generate glslc -fshader-stage=frag scene.frag -o scene.frag.spv
//go:generate glslc -fshader-stage=vert fullscreen.vert -o grayscale.vert.spv
//go:generate glslc -fshader-stage=frag grayscale.frag -o grayscale.frag.spv
//go:generate glslc -fshader-stage=vert fullscreen.vert -o comparator.vert.spv
//go:generate glslc -fshader-stage=frag comparator.frag -o comparator.frag.spv
