package framecomp

import (
	vk "github.com/goki/vulkan"
)

// PipelineBuilder collects fixed-function state for a graphics pipeline
// that draws procedurally generated vertices. Defaults match a
// full-screen pass: triangle list, no culling, no depth, one sample.
type PipelineBuilder struct {
	shaderStages         []vk.PipelineShaderStageCreateInfo
	vertexInputInfo      vk.PipelineVertexInputStateCreateInfo
	inputAssembly        vk.PipelineInputAssemblyStateCreateInfo
	rasterizer           vk.PipelineRasterizationStateCreateInfo
	colorBlendAttachment vk.PipelineColorBlendAttachmentState
	multisampling        vk.PipelineMultisampleStateCreateInfo
	depthStencil         vk.PipelineDepthStencilStateCreateInfo
}

// NewPipelineBuilder starts a pipeline for program.
func NewPipelineBuilder(program *ShaderProgram) *PipelineBuilder {
	pb := PipelineBuilder{}
	pb.shaderStages = program.Stages()

	pb.vertexInputInfo = vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	pb.inputAssembly = vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pb.rasterizer = vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	pb.multisampling = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	pb.colorBlendAttachment = vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable: vk.False,
	}

	pb.depthStencil = vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.False,
		DepthWriteEnable: vk.False,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
	}

	return &pb
}

// Samples sets the rasterization sample count.
func (p *PipelineBuilder) Samples(samples vk.SampleCountFlagBits) *PipelineBuilder {
	p.multisampling.RasterizationSamples = samples
	return p
}

// DepthTest enables depth testing and writing.
func (p *PipelineBuilder) DepthTest() *PipelineBuilder {
	p.depthStencil.DepthTestEnable = vk.True
	p.depthStencil.DepthWriteEnable = vk.True
	return p
}

// Build creates the pipeline for subpass of renderPass, drawing into
// viewport and clipped to scissor.
func (p *PipelineBuilder) Build(device vk.Device, layout vk.PipelineLayout, renderPass vk.RenderPass,
	subpass uint32, viewport vk.Viewport, scissor vk.Rect2D) (vk.Pipeline, error) {

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{p.colorBlendAttachment},
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(p.shaderStages)),
		PStages:             p.shaderStages,
		PVertexInputState:   &p.vertexInputInfo,
		PInputAssemblyState: &p.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &p.rasterizer,
		PMultisampleState:   &p.multisampling,
		PColorBlendState:    &blendState,
		PDepthStencilState:  &p.depthStencil,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             subpass,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, nil, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines)
	if err := NewError("vkCreateGraphicsPipelines", ret); err != nil {
		return vk.NullPipeline, err
	}
	return pipelines[0], nil
}

// NewPipelineLayout creates a layout from descriptor set layouts and push
// constant ranges; either may be empty.
func NewPipelineLayout(device vk.Device, sets []vk.DescriptorSetLayout, push []vk.PushConstantRange) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(sets)),
		PSetLayouts:            sets,
		PushConstantRangeCount: uint32(len(push)),
		PPushConstantRanges:    push,
	}, nil, &layout)
	if err := NewError("vkCreatePipelineLayout", ret); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

// FullViewport covers extent with the standard depth range.
func FullViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
}

// FullRect covers extent.
func FullRect(extent vk.Extent2D) vk.Rect2D {
	return vk.Rect2D{Offset: vk.Offset2D{}, Extent: extent}
}
