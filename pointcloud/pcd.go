package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SavePCD writes cloud out in ASCII PCD format with fields x y z intensity,
// the point-cloud file-format I/O external collaborator named in the spec.
// Adapted from the teacher's ToPCD/writePCDData, trimmed to the one field
// layout the odometry core actually produces (no color channel).
func SavePCD(cloud Cloud, out io.Writer) error {
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z intensity\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F F\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		len(cloud), len(cloud)); err != nil {
		return errors.Wrap(err, "writing PCD header")
	}
	for _, p := range cloud {
		if _, err := fmt.Fprintf(out, "%f %f %f %f\n",
			p.Position.X, p.Position.Y, p.Position.Z, p.Intensity); err != nil {
			return errors.Wrap(err, "writing PCD point")
		}
	}
	return nil
}

// LoadPCD reads an ASCII PCD stream with an "x y z" or "x y z intensity"
// field layout into a Cloud. Binary PCD is not supported; the odometry core
// only ever round-trips its own ASCII output and simulator fixtures.
func LoadPCD(in io.Reader) (Cloud, error) {
	scanner := bufio.NewScanner(in)
	var numFields int
	var points int
	dataStarted := false
	var cloud Cloud

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !dataStarted {
			switch {
			case strings.HasPrefix(line, "FIELDS"):
				numFields = len(strings.Fields(line)) - 1
			case strings.HasPrefix(line, "POINTS"):
				fields := strings.Fields(line)
				n, err := strconv.Atoi(fields[1])
				if err != nil {
					return nil, errors.Wrap(err, "parsing PCD POINTS header")
				}
				points = n
			case strings.HasPrefix(line, "DATA"):
				if !strings.Contains(line, "ascii") {
					return nil, errors.Errorf("unsupported PCD data encoding: %q", line)
				}
				dataStarted = true
				cloud = make(Cloud, 0, points)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, errors.Errorf("malformed PCD point line: %q", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing PCD x")
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing PCD y")
		}
		z, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing PCD z")
		}
		var intensity float64
		if numFields >= 4 && len(fields) >= 4 {
			intensity, err = strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, errors.Wrap(err, "parsing PCD intensity")
			}
		}
		cloud = append(cloud, NewPoint(x, y, z, intensity))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading PCD stream")
	}
	return cloud, nil
}
