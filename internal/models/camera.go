package models

import "fmt"

// InvalidPipeline is the sentinel index meaning a camera has no bound pipeline.
const InvalidPipeline = -1

// Resolution is a video mode: frame geometry plus the rate the device
// delivers it at.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	FPS    int `yaml:"fps" json:"fps"`
}

func (r Resolution) Area() int {
	return r.Width * r.Height
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d@%d", r.Width, r.Height, r.FPS)
}

// Key is the resolution string calibration records are stored under.
func (r Resolution) Key() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CalibrationData is an immutable calibration record for one resolution.
type CalibrationData struct {
	Intrinsics        [9]float64 `yaml:"intrinsics" json:"intrinsics"`
	Distortion        []float64  `yaml:"distortion" json:"distortion"`
	ReprojectionError float64    `yaml:"reprojection_error" json:"reprojection_error"`
	Resolution        string     `yaml:"resolution" json:"resolution"`
}

// MountTransform is the 6-DOF pose of the camera on the robot frame.
type MountTransform struct {
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Z     float64 `yaml:"z" json:"z"`
	Roll  float64 `yaml:"roll" json:"roll"`
	Pitch float64 `yaml:"pitch" json:"pitch"`
	Yaw   float64 `yaml:"yaw" json:"yaw"`
}

// CameraConfig is the persisted identity and per-camera tuning of one device.
// Created at discovery time from the settings document or enumeration
// defaults; lives for the process and is written back on save.
type CameraConfig struct {
	ID              string                     `yaml:"id" json:"id"`
	Nickname        string                     `yaml:"nickname" json:"nickname"`
	DevicePath      string                     `yaml:"device_path" json:"device_path"`
	DefaultPipeline int                        `yaml:"default_pipeline" json:"default_pipeline"`
	StreamRes       Resolution                 `yaml:"stream_res" json:"stream_res"`
	Rotation        int                        `yaml:"rotation" json:"rotation"` // quarter turns clockwise
	Calibrations    map[string]CalibrationData `yaml:"calibrations,omitempty" json:"calibrations,omitempty"`
	Mount           MountTransform             `yaml:"mount" json:"mount"`
}

// CalibrationFor looks up the calibration record for a resolution, if one has
// been computed.
func (c *CameraConfig) CalibrationFor(res Resolution) (CalibrationData, bool) {
	cal, ok := c.Calibrations[res.Key()]
	return cal, ok
}
