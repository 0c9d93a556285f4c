package core

import (
	"errors"
)

var (
	// startup
	ErrMissingLayer           = errors.New("required instance layer not available")
	ErrMissingExtension       = errors.New("required extension not available")
	ErrNoSuitableDevice       = errors.New("no suitable physical device")
	ErrNoSuitableMemoryType   = errors.New("no suitable memory type")
	ErrResourceCreationFailed = errors.New("resource creation failed")
	ErrShaderUnreadable       = errors.New("shader file unreadable")
	ErrPresentModeUnavailable = errors.New("none of the preferred present modes is available")
	ErrFormatNotSupported     = errors.New("format does not support the required features")

	ErrDescriptorPoolExhausted = errors.New("descriptor pool exhausted")

	// The surface no longer matches the swapchain. Only ever handled inside the render target.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")

	// A fence did not signal within the wait's timeout.
	ErrFenceTimeout = errors.New("fence wait timed out")

	ErrMaterialTypeNotRegistered = errors.New("material type not registered")
)
