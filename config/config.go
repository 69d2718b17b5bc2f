// Package config decodes and validates every tunable parameter the
// Projector and Associator read, mirroring the reference stack's
// AttrConfig + mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName:
// "json", ...}) pattern for component configuration.
package config

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config carries every parameter named in the external-interfaces section:
// range-image geometry, segmentation thresholds, feature-extraction
// thresholds, and the mapper sub-rate divider.
type Config struct {
	NScan          int `json:"n_scan"`
	HorizontalScan int `json:"horizontal_scan"`

	AngResX          float64 `json:"ang_res_x"`
	AngResY          float64 `json:"ang_res_y"`
	AngBottom        float64 `json:"ang_bottom"`
	SensorMountAngle float64 `json:"sensor_mount_angle"`

	ScanPeriod float64 `json:"scan_period"`

	GroundScanInd int `json:"ground_scan_ind"`

	SegmentTheta  float64 `json:"segment_theta"`
	SegmentAlphaX float64 `json:"segment_alpha_x"`
	SegmentAlphaY float64 `json:"segment_alpha_y"`

	SegmentValidPointNum int `json:"segment_valid_point_num"`
	SegmentValidLineNum  int `json:"segment_valid_line_num"`

	EdgeThreshold float64 `json:"edge_threshold"`
	SurfThreshold float64 `json:"surf_threshold"`

	NearestFeatureSearchSqDist float64 `json:"nearest_feature_search_sq_dist"`

	MappingFrequencyDivider int `json:"mapping_frequency_divider"`
	IMUQueueLength           int `json:"imu_queue_length"`

	VoxelLeafSize float64 `json:"voxel_leaf_size"`

	Debug bool `json:"debug"`
}

// Default returns the config populated with the reference stack's default
// values (§6), suitable as a starting point for tests and for the cmd
// binary when no config file overrides a field.
func Default() Config {
	return Config{
		NScan:          16,
		HorizontalScan: 1800,

		AngResX:          0.2 * math.Pi / 180,
		AngResY:          2.0 * math.Pi / 180,
		AngBottom:        15.0 * math.Pi / 180,
		SensorMountAngle: 0,

		ScanPeriod: 0.1,

		GroundScanInd: 7,

		SegmentTheta:  60.0 * math.Pi / 180,
		SegmentAlphaX: 0.2 * math.Pi / 180,
		SegmentAlphaY: 2.0 * math.Pi / 180,

		SegmentValidPointNum: 5,
		SegmentValidLineNum:  3,

		EdgeThreshold: 0.1,
		SurfThreshold: 0.1,

		NearestFeatureSearchSqDist: 25,

		MappingFrequencyDivider: 1,
		IMUQueueLength:           200,

		VoxelLeafSize: 0.2,
	}
}

// Validate returns an error for a non-positive n_scan or horizontal_scan or
// a ground_scan_ind outside [0, n_scan], then fills the remaining unset
// tunables (angular resolutions, scan period, segmentation and feature
// thresholds, divider, queue length, leaf size) from Default. ang_bottom,
// sensor_mount_angle and debug are left as given. This matches the
// reference stack's AttrConfig.Validate convention of returning an error
// via errors.Errorf on a bad value rather than panicking.
func (c *Config) Validate() error {
	def := Default()

	if c.NScan <= 0 {
		return errors.Errorf("config: n_scan must be positive, got %d", c.NScan)
	}
	if c.HorizontalScan <= 0 {
		return errors.Errorf("config: horizontal_scan must be positive, got %d", c.HorizontalScan)
	}
	if c.GroundScanInd < 0 || c.GroundScanInd > c.NScan {
		return errors.Errorf("config: ground_scan_ind must be within [0, n_scan], got %d", c.GroundScanInd)
	}
	if c.AngResX == 0 {
		c.AngResX = def.AngResX
	}
	if c.AngResY == 0 {
		c.AngResY = def.AngResY
	}
	if c.ScanPeriod <= 0 {
		c.ScanPeriod = def.ScanPeriod
	}
	if c.SegmentTheta == 0 {
		c.SegmentTheta = def.SegmentTheta
	}
	if c.SegmentAlphaX == 0 {
		c.SegmentAlphaX = def.SegmentAlphaX
	}
	if c.SegmentAlphaY == 0 {
		c.SegmentAlphaY = def.SegmentAlphaY
	}
	if c.SegmentValidPointNum <= 0 {
		c.SegmentValidPointNum = def.SegmentValidPointNum
	}
	if c.SegmentValidLineNum <= 0 {
		c.SegmentValidLineNum = def.SegmentValidLineNum
	}
	if c.EdgeThreshold == 0 {
		c.EdgeThreshold = def.EdgeThreshold
	}
	if c.SurfThreshold == 0 {
		c.SurfThreshold = def.SurfThreshold
	}
	if c.NearestFeatureSearchSqDist <= 0 {
		c.NearestFeatureSearchSqDist = def.NearestFeatureSearchSqDist
	}
	if c.MappingFrequencyDivider <= 0 {
		c.MappingFrequencyDivider = def.MappingFrequencyDivider
	}
	if c.IMUQueueLength <= 0 {
		c.IMUQueueLength = def.IMUQueueLength
	}
	if c.VoxelLeafSize <= 0 {
		c.VoxelLeafSize = def.VoxelLeafSize
	}
	return nil
}

// Load reads and validates a JSON-encoded Config from path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "opening config file %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	return Decode(f)
}

// Decode reads and validates a JSON-encoded Config from r.
func Decode(r io.Reader) (Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, errors.Wrap(err, "decoding config JSON")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// FromMap decodes a Config from a generic attribute map, mirroring
// AttrConfig's mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName:
// "json", Result: &conf}) conversion path for configuration embedded in a
// larger document rather than its own file.
func FromMap(attrs map[string]interface{}) (Config, error) {
	var c Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &c})
	if err != nil {
		return Config{}, errors.Wrap(err, "building config decoder")
	}
	if err := decoder.Decode(attrs); err != nil {
		return Config{}, errors.Wrap(err, "decoding config attributes")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
