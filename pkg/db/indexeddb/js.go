//go:build js && wasm

package indexeddb

import (
	"context"
	"fmt"
	"syscall/js"
)

var (
	uint8Array  = js.Global().Get("Uint8Array")
	arrayBuffer = js.Global().Get("ArrayBuffer")
)

func indexedDB() js.Value {
	return js.Global().Get("indexedDB")
}

// try invokes fn, converting a thrown JavaScript exception into an error.
func try(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case js.Error:
				err = fmt.Errorf("indexeddb: %s", domMessage(e.Value))
			case error:
				err = e
			default:
				err = fmt.Errorf("indexeddb: %v", r)
			}
		}
	}()
	fn()
	return nil
}

// await parks the calling goroutine until the request settles. Parking
// yields to the event loop; the JavaScript thread is never blocked.
func await(ctx context.Context, req js.Value) (js.Value, error) {
	done := make(chan struct{})
	var result js.Value
	var reqErr error

	success := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		result = req.Get("result")
		close(done)
		return nil
	})
	failure := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		reqErr = fmt.Errorf("indexeddb: request failed: %s", domMessage(req.Get("error")))
		close(done)
		return nil
	})
	req.Set("onsuccess", success)
	req.Set("onerror", failure)

	select {
	case <-done:
		success.Release()
		failure.Release()
		return result, reqErr
	case <-ctx.Done():
		req.Set("onsuccess", js.Null())
		req.Set("onerror", js.Null())
		success.Release()
		failure.Release()
		return js.Value{}, ctx.Err()
	}
}

// awaitTx parks until the transaction settles. Cancelling ctx aborts the
// transaction, rolling back every write it held; a transaction that had
// already committed still reports success.
func awaitTx(ctx context.Context, tx js.Value) error {
	done := make(chan error, 1)
	settled := false
	settle := func(err error) {
		// handlers run one at a time on the event loop; a failed
		// transaction fires onerror and then onabort
		if settled {
			return
		}
		settled = true
		done <- err
	}

	complete := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		settle(nil)
		return nil
	})
	failure := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		settle(fmt.Errorf("indexeddb: transaction failed: %s", domMessage(tx.Get("error"))))
		return nil
	})
	aborted := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		settle(errAborted)
		return nil
	})
	release := func() {
		tx.Set("oncomplete", js.Null())
		tx.Set("onerror", js.Null())
		tx.Set("onabort", js.Null())
		complete.Release()
		failure.Release()
		aborted.Release()
	}
	tx.Set("oncomplete", complete)
	tx.Set("onerror", failure)
	tx.Set("onabort", aborted)

	select {
	case err := <-done:
		release()
		return err
	case <-ctx.Done():
		// aborting a finished transaction throws; its handler has then
		// already queued a result for us
		_ = try(func() { tx.Call("abort") })
		err := <-done
		release()
		if err == nil {
			return nil
		}
		return ctx.Err()
	}
}

// openDatabase connects to the named database. With version 0 the current
// version is opened; otherwise the given version is requested and upgrade
// runs inside the resulting versionchange transaction.
func openDatabase(ctx context.Context, name string, version int, upgrade func(conn js.Value)) (js.Value, error) {
	var req js.Value
	err := try(func() {
		if version > 0 {
			req = indexedDB().Call("open", name, version)
		} else {
			req = indexedDB().Call("open", name)
		}
	})
	if err != nil {
		return js.Value{}, err
	}

	var up js.Func
	if upgrade != nil {
		up = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			upgrade(req.Get("result"))
			return nil
		})
		req.Set("onupgradeneeded", up)
	}

	conn, err := await(ctx, req)
	if upgrade != nil {
		req.Set("onupgradeneeded", js.Null())
		up.Release()
	}
	if err != nil {
		return js.Value{}, fmt.Errorf("open database %s: %w", name, err)
	}
	return conn, nil
}

// toJS copies b into a fresh Uint8Array.
func toJS(b []byte) js.Value {
	arr := uint8Array.New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

// toBytes copies a Uint8Array, or the ArrayBuffer form key queries return,
// into Go memory.
func toBytes(v js.Value) []byte {
	if v.InstanceOf(arrayBuffer) {
		v = uint8Array.New(v)
	}
	out := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(out, v)
	return out
}

// domMessage extracts the message of a DOMException, which may be absent.
func domMessage(v js.Value) string {
	if v.Truthy() {
		return v.Get("message").String()
	}
	return "unknown error"
}
