package rest

import (
	"fmt"
	"strings"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
)

// stage is one named step of the request pipeline.
type stage struct {
	name string
	run  func(b *httpclient.RequestBuilder, rc *RequestContext) error
}

const (
	stageInit         = "init"
	stageGlobalBefore = "global.before"
	stageMethodBefore = "method.before"
	stageMethodAfter  = "method.after"
	stageGlobalAfter  = "global.after"
	stageFinalize     = "finalize"
)

// buildPipeline precomputes the fixed stage order of a method: init,
// global before, method before, one injector per parameter in index order,
// method after, global after. Finalize runs last in buildRequest.
func buildPipeline(ic *InterfaceConfig, mc *MethodConfig) []stage {
	url := strings.TrimRight(ic.endPoint, "/") + ic.contextPath + mc.path
	global, method := ic.global, mc.interceptor

	stages := make([]stage, 0, len(mc.params)+5)
	stages = append(stages,
		stage{stageInit, func(b *httpclient.RequestBuilder, _ *RequestContext) error {
			b.SetURLTemplate(url).
				SetMethod(mc.verb).
				SetEncoding(ic.encoding).
				SetSocketTimeout(mc.socketTimeout).
				SetConnectionTimeout(mc.connectionTimeout)
			if mc.produces != "" {
				b.SetAccept(mc.produces)
			}
			return nil
		}},
		stage{stageGlobalBefore, global.BeforeInjection},
		stage{stageMethodBefore, method.BeforeInjection},
	)
	for _, p := range mc.params {
		stages = append(stages, stage{
			name: fmt.Sprintf("inject[%d]:%s", p.index, p.name),
			run: func(b *httpclient.RequestBuilder, rc *RequestContext) error {
				return p.injector.Inject(b, rc.Param(p.index))
			},
		})
	}
	return append(stages,
		stage{stageMethodAfter, method.AfterInjection},
		stage{stageGlobalAfter, global.AfterInjection},
	)
}

// buildRequest runs the pipeline for one attempt. It returns ErrCancel
// unwrapped when a hook vetoed the call.
func (m *MethodConfig) buildRequest(rc *RequestContext) (*httpclient.Request, error) {
	b := httpclient.NewRequestBuilder("")
	for _, s := range m.pipeline {
		if err := s.run(b, rc); err != nil {
			return nil, err
		}
	}
	req, err := b.Build()
	if err != nil {
		return nil, errors.InvalidArgument(m.name, err.Error()).WithCause(err)
	}
	return req, nil
}
