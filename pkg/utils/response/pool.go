package response

import "sync"

// responsePool recycles Response objects to reduce allocation pressure on
// high-traffic endpoints. All constructor helpers draw from this pool.
var responsePool = sync.Pool{
	New: func() interface{} {
		return &Response{}
	},
}

// Acquire returns a Response from the pool. Callers must call Release once
// the response has been written out, and must not touch it afterwards.
func Acquire() *Response {
	return responsePool.Get().(*Response)
}

// Release resets the response and returns it to the pool. Releasing nil is
// a no-op.
func Release(resp *Response) {
	if resp == nil {
		return
	}

	resp.Code = 0
	resp.HTTPCode = 0
	resp.Message = ""
	resp.Data = nil
	resp.RequestID = ""
	resp.Timestamp = 0

	responsePool.Put(resp)
}
