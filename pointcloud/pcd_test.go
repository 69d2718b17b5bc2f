package pointcloud

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestPCDRoundTrip(t *testing.T) {
	cloud := Cloud{
		NewPoint(1, 2, 3, 0.5),
		NewPoint(-1, -2, -3, 1.25),
	}

	var buf bytes.Buffer
	err := SavePCD(cloud, &buf)
	test.That(t, err, test.ShouldBeNil)

	got, err := LoadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(got), test.ShouldEqual, len(cloud))
	for i := range cloud {
		test.That(t, got[i].Position.X, test.ShouldAlmostEqual, cloud[i].Position.X)
		test.That(t, got[i].Position.Y, test.ShouldAlmostEqual, cloud[i].Position.Y)
		test.That(t, got[i].Position.Z, test.ShouldAlmostEqual, cloud[i].Position.Z)
		test.That(t, got[i].Intensity, test.ShouldAlmostEqual, cloud[i].Intensity)
	}
}

func TestLoadPCDRejectsBinary(t *testing.T) {
	data := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n" +
		"WIDTH 1\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 1\nDATA binary\n"
	_, err := LoadPCD(bytes.NewBufferString(data))
	test.That(t, err, test.ShouldNotBeNil)
}
