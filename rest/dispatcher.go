package rest

import (
	stderrors "errors"
	"fmt"

	"github.com/kbukum/restkit/errors"
)

// dispatch turns a successful response into the declared return value.
// Streams and whole responses are handed to the caller open; every other
// path leaves the response closed.
func dispatch(rc *ResponseContext) (any, error) {
	mc := rc.Method()
	resp := rc.Response()

	switch mc.Returns().Kind {
	case ReturnStream:
		return resp.Stream(), nil
	case ReturnReader:
		r, err := resp.Reader()
		if err != nil {
			resp.Close()
			return nil, errors.Dispatch(mc.Name(), err.Error())
		}
		return r, nil
	case ReturnResponse:
		return resp, nil
	case ReturnNone:
		resp.Close()
		return nil, nil
	}

	v, err := mc.ResponseHandler().Handle(rc)
	if err != nil {
		resp.Close()
		var ae *errors.AppError
		if stderrors.As(err, &ae) && (ae.Code == errors.ErrCodeHandler || ae.Code == errors.ErrCodeDispatch) {
			return nil, err
		}
		return nil, errors.Handler(mc.Name(), err)
	}
	if !mc.Returns().Accepts(v) {
		resp.Close()
		return nil, errors.Dispatch(mc.Name(), fmt.Sprintf("handler returned %T, want %s", v, mc.Returns().Name))
	}
	return v, nil
}
