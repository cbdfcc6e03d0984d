package debugger

import "github.com/rafttio/netcoredbg/internal/cordebug"

// MaxFrame as a high bound means "all remaining frames".
const MaxFrame = int(^uint(0) >> 1)

// GetStackTrace resolves the thread's call stack into leveled frame
// locations, starting at lowFrame and stopping after highFrame inclusive
// or when frames are exhausted. Levels are 0-based with the currently
// executing frame at 0. Frames without source mapping are still emitted
// with an empty location. The result is only valid for the duration of
// the current stop.
func (d *Debugger) GetStackTrace(threadID, lowFrame, highFrame int) ([]cordebug.FrameLocation, error) {
	proc, err := d.process()
	if err != nil {
		return nil, err
	}
	thread, err := proc.Thread(threadID)
	if err != nil {
		return nil, err
	}
	frames, err := thread.Frames()
	if err != nil {
		return nil, err
	}

	if lowFrame < 0 {
		lowFrame = 0
	}
	out := make([]cordebug.FrameLocation, 0)
	for level := lowFrame; level <= highFrame && level < len(frames); level++ {
		out = append(out, frames[level].Location())
	}
	return out, nil
}
