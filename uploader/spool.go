package uploader

import (
	"bytes"
	"io"
	"os"
)

// spoolThreshold is the largest upload kept fully in memory while the
// analyzer pipeline makes its passes; anything larger spills to a temp file.
const spoolThreshold = 1 << 20

// spool returns a rewindable view of content for the analyzer pipeline,
// which needs to read the stream several times. Content that is already
// seekable is used in place; otherwise it is buffered in memory up to
// spoolThreshold bytes and in a temporary file beyond that. The returned
// cleanup must be called once the content has been consumed.
func spool(content io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := content.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	var head bytes.Buffer
	if _, err := io.CopyN(&head, content, spoolThreshold+1); err == io.EOF {
		return bytes.NewReader(head.Bytes()), func() {}, nil
	} else if err != nil {
		return nil, nil, err
	}

	tmp, err := os.CreateTemp("", "attachkit-spool-")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := tmp.Write(head.Bytes()); err != nil {
		cleanup()
		return nil, nil, err
	}
	if _, err := io.Copy(tmp, content); err != nil {
		cleanup()
		return nil, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, err
	}
	return tmp, cleanup, nil
}
