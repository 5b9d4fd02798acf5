// Package eino 把 eino 模型调用回调接入 Prometheus 指标与 OpenTelemetry span
package eino

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"z-novel-copilot/internal/domain/service"
	"z-novel-copilot/pkg/metrics"
)

var registerOnce sync.Once

// Init 向 eino 追加全局模型回调，重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}

// startTimeKey 在 Context 中记录调用开始时间，OnEnd/OnError 据此计算耗时
type startTimeKey struct{}

// modelNameKey OnStart 时记下的模型名（流式输出的分片里往往不带 Config）
type modelNameKey struct{}

// newChatModelCallbackHandler 大模型调用回调：调用次数、耗时、Token 消耗与追踪
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			modelName := modelNameFromInput(input)
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
			ctx = context.WithValue(ctx, modelNameKey{}, modelName)

			attrs := []attribute.KeyValue{
				attribute.String("generation.channel", service.ChannelFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelName),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.stream", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			modelName := modelNameFromOutput(output)
			if modelName == "" {
				modelName = modelNameFromContext(ctx)
			}
			var usage *model.TokenUsage
			if output != nil {
				usage = output.TokenUsage
			}
			finish(ctx, modelName, usage)
			return ctx
		},

		// 流式调用：必须读完并关闭 reader，否则上游 Pipe 会阻塞
		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()

				modelName := modelNameFromContext(ctx)
				var usage *model.TokenUsage
				for {
					frame, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						recordError(ctx, modelName, err)
						return
					}
					if frame == nil {
						continue
					}
					if name := modelNameFromOutput(frame); name != "" {
						modelName = name
					}
					if frame.TokenUsage != nil {
						usage = frame.TokenUsage
					}
				}
				finish(ctx, modelName, usage)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			recordError(ctx, modelNameFromContext(ctx), err)
			return ctx
		},
	}
}

func finish(ctx context.Context, modelName string, usage *model.TokenUsage) {
	provider := service.ProviderFromContext(ctx)

	metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
}

func recordError(ctx context.Context, modelName string, err error) {
	provider := service.ProviderFromContext(ctx)

	status := "error"
	if errors.Is(err, context.Canceled) {
		status = "canceled"
	}
	metrics.LLMCallTotal.WithLabelValues(provider, modelName, status).Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// elapsedSeconds 无开始时间时返回 0
func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(modelNameKey{}).(string)
	return name
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
