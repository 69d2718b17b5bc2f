package config

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestValidateRejectsNonPositiveNScan(t *testing.T) {
	c := Default()
	c.NScan = 0
	err := c.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateRejectsOutOfRangeGroundScanInd(t *testing.T) {
	c := Default()
	c.GroundScanInd = c.NScan + 1
	err := c.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateFillsZeroFieldsFromDefault(t *testing.T) {
	c := Config{NScan: 16, HorizontalScan: 1800}
	err := c.Validate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.ScanPeriod, test.ShouldEqual, Default().ScanPeriod)
	test.That(t, c.VoxelLeafSize, test.ShouldEqual, Default().VoxelLeafSize)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader("{not json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeValidConfig(t *testing.T) {
	body := `{"n_scan": 16, "horizontal_scan": 1800, "ground_scan_ind": 7}`
	c, err := Decode(strings.NewReader(body))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NScan, test.ShouldEqual, 16)
}

func TestFromMapDecodesJSONTaggedFields(t *testing.T) {
	attrs := map[string]interface{}{
		"n_scan":          16,
		"horizontal_scan": 1800,
		"ground_scan_ind": 7,
	}
	c, err := FromMap(attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.NScan, test.ShouldEqual, 16)
	test.That(t, c.HorizontalScan, test.ShouldEqual, 1800)
}
