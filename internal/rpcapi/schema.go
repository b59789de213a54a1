// Package rpcapi fronts internal/queue with a small gRPC service
// (SubmitJob, AwaitJob) for a caller that is not itself a Swarm process —
// a dashboard, a second language runtime — per SPEC_FULL.md's domain
// stack. Grounded on Jeeves-Cluster-Organization-jeeves-core's
// coreengine/grpc package for the service-over-a-domain-package shape, but
// that package's services are fronted by protoc-gen-go output checked into
// its repo; no proto toolchain is available here (the standing rule against
// running any toolchain extends to protoc), so the wire schema is built at
// runtime with protodesc/dynamicpb instead of generated *.pb.go files. This
// keeps every message a genuine protoreflect.Message — still real
// google.golang.org/protobuf usage — without a code generation step.
package rpcapi

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const protoPackage = "swarm.rpcapi"

func strp(s string) *string { return &s }
func i32p(i int32) *int32   { return &i }

func scalarField(name string, number int32, t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	return &descriptorpb.FieldDescriptorProto{
		Name:     strp(name),
		Number:   i32p(number),
		Type:     t.Enum(),
		Label:    &label,
		JsonName: strp(name),
	}
}

func strField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: strp(name), Field: fields}
}

// schema is the runtime-built descriptor set backing the service: one
// message per request/response pair, every field a plain string (the job
// payload, captured locals, and filter map already travel as JSON blobs
// everywhere else in this codebase — internal/queue's own KV records are
// JSON strings — so the gRPC surface matches that rather than introducing
// a second encoding).
type schema struct {
	file               protoreflect.FileDescriptor
	submitJobRequest   protoreflect.MessageDescriptor
	submitJobResponse  protoreflect.MessageDescriptor
	awaitJobRequest    protoreflect.MessageDescriptor
	awaitJobResponse   protoreflect.MessageDescriptor
}

func buildSchema() (*schema, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    strp("swarm/rpcapi.proto"),
		Package: strp(protoPackage),
		Syntax:  strp("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("SubmitJobRequest",
				strField("payload_json", 1),
				strField("locals_json", 2),
				strField("filters_json", 3),
			),
			message("SubmitJobResponse",
				strField("job_id", 1),
			),
			message("AwaitJobRequest",
				strField("job_id", 1),
			),
			message("AwaitJobResponse",
				strField("status", 1),
				strField("result_json", 2),
				strField("failure_reason", 3),
			),
		},
	}

	file, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		return nil, fmt.Errorf("rpcapi: build schema: %w", err)
	}

	find := func(name string) protoreflect.MessageDescriptor {
		return file.Messages().ByName(protoreflect.Name(name))
	}
	return &schema{
		file:              file,
		submitJobRequest:  find("SubmitJobRequest"),
		submitJobResponse: find("SubmitJobResponse"),
		awaitJobRequest:   find("AwaitJobRequest"),
		awaitJobResponse:  find("AwaitJobResponse"),
	}, nil
}

func newDynamic(desc protoreflect.MessageDescriptor) *dynamicpb.Message {
	return dynamicpb.NewMessage(desc)
}

func getStr(m *dynamicpb.Message, name string) string {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return ""
	}
	return m.Get(fd).String()
}

func setStr(m *dynamicpb.Message, name, value string) {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return
	}
	m.Set(fd, protoreflect.ValueOfString(value))
}
