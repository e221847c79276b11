package executor

import "bytes"

// binarySampleSize is how many leading bytes are scanned for null bytes,
// matching Git's text/binary heuristic.
const binarySampleSize = 8000

// collector captures command output with a size limit and binary detection.
// Binary streams are replaced with a placeholder rather than buffered.
type collector struct {
	buffer    bytes.Buffer
	maxBytes  int64
	truncated bool
	isBinary  bool

	bytesChecked int
}

func newCollector(maxBytes int64) *collector {
	return &collector{maxBytes: maxBytes}
}

func (c *collector) Write(p []byte) (int, error) {
	if c.isBinary {
		return len(p), nil
	}

	if c.bytesChecked < binarySampleSize {
		toCheck := p
		if remaining := binarySampleSize - c.bytesChecked; len(toCheck) > remaining {
			toCheck = toCheck[:remaining]
		}
		if isBinaryContent(toCheck) {
			c.isBinary = true
			c.truncated = true
			return len(p), nil
		}
		c.bytesChecked += len(toCheck)
	}

	remainingSpace := c.maxBytes - int64(c.buffer.Len())
	if remainingSpace <= 0 {
		c.truncated = true
		return len(p), nil
	}

	toWrite := p
	if int64(len(toWrite)) > remainingSpace {
		toWrite = toWrite[:remainingSpace]
		c.truncated = true
	}

	if _, err := c.buffer.Write(toWrite); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *collector) String() string {
	if c.isBinary {
		return "[Binary Content]"
	}
	return c.buffer.String()
}

func (c *collector) Truncated() bool {
	return c.truncated
}

// isBinaryContent reports whether content looks binary (null bytes in the
// sample). UTF-16/UTF-32 BOMs are treated as text to avoid false positives.
func isBinaryContent(content []byte) bool {
	if len(content) >= 2 {
		if (content[0] == 0xFF && content[1] == 0xFE) ||
			(content[0] == 0xFE && content[1] == 0xFF) {
			return false
		}
	}
	if len(content) >= 4 {
		if (content[0] == 0xFF && content[1] == 0xFE && content[2] == 0x00 && content[3] == 0x00) ||
			(content[0] == 0x00 && content[1] == 0x00 && content[2] == 0xFE && content[3] == 0xFF) {
			return false
		}
	}

	sample := content
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
