package rangeimage

import "math"

// neighbor is one of the four 4-connected range-image offsets the BFS
// expands along. Horizontal neighbors (dRow==0) use segmentAlphaX; vertical
// neighbors use segmentAlphaY, per the design.
type neighbor struct{ dRow, dCol int }

var neighbors = [4]neighbor{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
}

type cell struct{ row, col int }

// segment runs the breadth-first angular-coherence segmentation over every
// unvisited, unmasked cell, accepting components with at least 30 points or
// with at least segmentValidPointNum points spanning at least
// segmentValidLineNum distinct rings; rejected components are overwritten
// with the 999999 sentinel.
func (p *Projector) segment(img *image) {
	labelCount := int32(1)

	for i := 0; i < img.nScan; i++ {
		for j := 0; j < img.hScan; j++ {
			if img.labelMat[i][j] != labelUnvisited {
				continue
			}
			members, lineCount := p.labelComponent(img, i, j, labelCount)
			if accepted(len(members), lineCount, p.cfg.SegmentValidPointNum, p.cfg.SegmentValidLineNum) {
				labelCount++
			} else {
				for _, m := range members {
					img.labelMat[m.row][m.col] = labelRejected
				}
			}
		}
	}
}

func accepted(size, lineCount, validPointNum, validLineNum int) bool {
	if size >= 30 {
		return true
	}
	return size >= validPointNum && lineCount >= validLineNum
}

// labelComponent runs one BFS from (row,col), tentatively labeling every
// member with label (the caller overwrites with the rejected sentinel if
// the component is ultimately too small). It returns the members found and
// the number of distinct rows they span.
func (p *Projector) labelComponent(img *image, row, col int, label int32) ([]cell, int) {
	queue := []cell{{row, col}}
	img.labelMat[row][col] = label

	var members []cell
	lineSeen := make([]bool, img.nScan)

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		members = append(members, c)
		lineSeen[c.row] = true

		d1Self := img.rangeMat[c.row][c.col]
		for _, n := range neighbors {
			nr := c.row + n.dRow
			if nr < 0 || nr >= img.nScan {
				continue
			}
			nc := ((c.col+n.dCol)%img.hScan + img.hScan) % img.hScan

			if img.labelMat[nr][nc] != labelUnvisited {
				continue
			}

			neighborRange := img.rangeMat[nr][nc]
			d1, d2 := d1Self, neighborRange
			if d2 > d1 {
				d1, d2 = d2, d1
			}

			alpha := p.cfg.SegmentAlphaY
			if n.dRow == 0 {
				alpha = p.cfg.SegmentAlphaX
			}

			angle := math.Atan2(d2*math.Sin(alpha), d1-d2*math.Cos(alpha))
			if angle > p.cfg.SegmentTheta {
				img.labelMat[nr][nc] = label
				queue = append(queue, cell{nr, nc})
			}
		}
	}

	lineCount := 0
	for _, seen := range lineSeen {
		if seen {
			lineCount++
		}
	}
	return members, lineCount
}
