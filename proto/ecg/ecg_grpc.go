// Package ecgv1 описывает gRPC сервис приема кадров ЭКГ.
//
// Сообщения построены на well-known types: клиент отправляет сырые кадры
// датчика в wrapperspb.BytesValue, сервер отвечает подтверждениями в
// structpb.Struct. Идентификатор сессии и формат кадра передаются в metadata.
package ecgv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "ecg.v1.SampleService"

	SampleService_PushSamples_FullMethodName = "/ecg.v1.SampleService/PushSamples"
)

// Ключи metadata потока PushSamples
const (
	MetadataSessionID   = "x-session-id"
	MetadataFrameFormat = "x-frame-format"
)

// Поля подтверждения
const (
	AckSessionID   = "session_id"
	AckReceivedCnt = "received_cnt"
	AckSampleCnt   = "sample_cnt"
)

// SampleServiceClient - клиентская часть сервиса
type SampleServiceClient interface {
	PushSamples(ctx context.Context, opts ...grpc.CallOption) (SampleService_PushSamplesClient, error)
}

type sampleServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSampleServiceClient(cc grpc.ClientConnInterface) SampleServiceClient {
	return &sampleServiceClient{cc}
}

func (c *sampleServiceClient) PushSamples(ctx context.Context, opts ...grpc.CallOption) (SampleService_PushSamplesClient, error) {
	stream, err := c.cc.NewStream(ctx, &SampleService_ServiceDesc.Streams[0], SampleService_PushSamples_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &sampleServicePushSamplesClient{stream}, nil
}

type SampleService_PushSamplesClient interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type sampleServicePushSamplesClient struct {
	grpc.ClientStream
}

func (x *sampleServicePushSamplesClient) Send(m *wrapperspb.BytesValue) error {
	return x.ClientStream.SendMsg(m)
}

func (x *sampleServicePushSamplesClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SampleServiceServer - серверная часть сервиса
type SampleServiceServer interface {
	PushSamples(SampleService_PushSamplesServer) error
}

// UnimplementedSampleServiceServer встраивается в реализации для прямой совместимости
type UnimplementedSampleServiceServer struct{}

func (UnimplementedSampleServiceServer) PushSamples(SampleService_PushSamplesServer) error {
	return status.Errorf(codes.Unimplemented, "method PushSamples not implemented")
}

func RegisterSampleServiceServer(s grpc.ServiceRegistrar, srv SampleServiceServer) {
	s.RegisterService(&SampleService_ServiceDesc, srv)
}

func _SampleService_PushSamples_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(SampleServiceServer).PushSamples(&sampleServicePushSamplesServer{stream})
}

type SampleService_PushSamplesServer interface {
	Send(*structpb.Struct) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type sampleServicePushSamplesServer struct {
	grpc.ServerStream
}

func (x *sampleServicePushSamplesServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func (x *sampleServicePushSamplesServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SampleService_ServiceDesc - описание сервиса для grpc.Server
var SampleService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SampleServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "PushSamples",
			Handler:       _SampleService_PushSamples_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "ecg/v1/ecg.proto",
}

// NewAck формирует подтверждение приема кадров
func NewAck(sessionID string, receivedCnt, sampleCnt uint64) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			AckSessionID:   structpb.NewStringValue(sessionID),
			AckReceivedCnt: structpb.NewNumberValue(float64(receivedCnt)),
			AckSampleCnt:   structpb.NewNumberValue(float64(sampleCnt)),
		},
	}
}

// ParseAck извлекает поля подтверждения
func ParseAck(ack *structpb.Struct) (sessionID string, receivedCnt, sampleCnt uint64) {
	fields := ack.GetFields()
	sessionID = fields[AckSessionID].GetStringValue()
	receivedCnt = uint64(fields[AckReceivedCnt].GetNumberValue())
	sampleCnt = uint64(fields[AckSampleCnt].GetNumberValue())
	return sessionID, receivedCnt, sampleCnt
}
