package index

import (
	"os"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"symbex/internal/errors"
)

// LoadFile reads a protobuf-serialized SCIP-shaped record stream (§6) from
// path and converts it into plain Document values. Grounded on the teacher's
// internal/backends/scip/loader.go (LoadSCIPIndex/convert* family).
func LoadFile(path string) ([]*Document, *Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.IoFailure, "read index file", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses raw protobuf bytes into Documents + Metadata.
func LoadBytes(data []byte) ([]*Document, *Metadata, error) {
	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, nil, errors.Wrap(errors.CorruptCache, "parse SCIP index", err)
	}
	docs := make([]*Document, len(raw.Documents))
	for i, d := range raw.Documents {
		docs[i] = convertDocument(d)
	}
	return docs, convertMetadata(raw.Metadata), nil
}

// SaveBytes serializes documents + metadata into the same protobuf-shaped
// record stream LoadBytes consumes.
func SaveBytes(docs []*Document, meta *Metadata) ([]byte, error) {
	raw := &scippb.Index{
		Metadata:  toProtoMetadata(meta),
		Documents: make([]*scippb.Document, len(docs)),
	}
	for i, d := range docs {
		raw.Documents[i] = toProtoDocument(d)
	}
	return proto.Marshal(raw)
}

func convertMetadata(m *scippb.Metadata) *Metadata {
	if m == nil {
		return nil
	}
	out := &Metadata{
		ProjectRoot:          m.ProjectRoot,
		TextDocumentEncoding: m.TextDocumentEncoding.String(),
	}
	if m.ToolInfo != nil {
		out.ToolInfo = &ToolInfo{
			Name:      m.ToolInfo.Name,
			Version:   m.ToolInfo.Version,
			Arguments: m.ToolInfo.Arguments,
		}
	}
	return out
}

func toProtoMetadata(m *Metadata) *scippb.Metadata {
	if m == nil {
		return &scippb.Metadata{}
	}
	out := &scippb.Metadata{
		ProjectRoot:          m.ProjectRoot,
		TextDocumentEncoding: scippb.TextEncoding_UTF8,
	}
	if m.ToolInfo != nil {
		out.ToolInfo = &scippb.ToolInfo{
			Name:      m.ToolInfo.Name,
			Version:   m.ToolInfo.Version,
			Arguments: m.ToolInfo.Arguments,
		}
	}
	return out
}

func convertDocument(d *scippb.Document) *Document {
	out := &Document{
		Language:     d.Language,
		RelativePath: d.RelativePath,
		Symbols:      make([]*SymbolInformation, len(d.Symbols)),
		Occurrences:  make([]*Occurrence, len(d.Occurrences)),
	}
	for i, s := range d.Symbols {
		out.Symbols[i] = convertSymbol(s, d.RelativePath)
	}
	for i, o := range d.Occurrences {
		out.Occurrences[i] = convertOccurrence(o, d.RelativePath)
	}
	return out
}

func toProtoDocument(d *Document) *scippb.Document {
	out := &scippb.Document{
		Language:     d.Language,
		RelativePath: d.RelativePath,
		Symbols:      make([]*scippb.SymbolInformation, len(d.Symbols)),
		Occurrences:  make([]*scippb.Occurrence, len(d.Occurrences)),
	}
	for i, s := range d.Symbols {
		out.Symbols[i] = toProtoSymbol(s)
	}
	for i, o := range d.Occurrences {
		out.Occurrences[i] = toProtoOccurrence(o)
	}
	return out
}

func convertSymbol(s *scippb.SymbolInformation, definingFile string) *SymbolInformation {
	rels := make([]*Relationship, len(s.Relationships))
	for i, r := range s.Relationships {
		rels[i] = &Relationship{
			TargetID:         r.Symbol,
			IsReference:      r.IsReference,
			IsImplementation: r.IsImplementation,
			IsTypeDefinition: r.IsTypeDefinition,
			IsDefinition:     r.IsDefinition,
		}
	}
	return &SymbolInformation{
		ID:            s.Symbol,
		Kind:          mapProtoKind(s.Kind),
		Documentation: s.Documentation,
		Relationships: rels,
		DisplayName:   s.DisplayName,
		DefiningFile:  definingFile,
	}
}

func toProtoSymbol(s *SymbolInformation) *scippb.SymbolInformation {
	rels := make([]*scippb.Relationship, len(s.Relationships))
	for i, r := range s.Relationships {
		rels[i] = &scippb.Relationship{
			Symbol:           r.TargetID,
			IsReference:      r.IsReference,
			IsImplementation: r.IsImplementation,
			IsTypeDefinition: r.IsTypeDefinition,
			IsDefinition:     r.IsDefinition,
		}
	}
	return &scippb.SymbolInformation{
		Symbol:        s.ID,
		Kind:          mapKindToProto(s.Kind),
		Documentation: s.Documentation,
		Relationships: rels,
		DisplayName:   s.DisplayName,
	}
}

func convertOccurrence(o *scippb.Occurrence, file string) *Occurrence {
	out := &Occurrence{
		File:     file,
		SymbolID: o.Symbol,
		RoleMask: o.SymbolRoles,
	}
	out.StartLine, out.StartCol, out.EndLine, out.EndCol = decodeRange(o.Range)
	if len(o.EnclosingRange) > 0 {
		_, _, endLine, _ := decodeRange(o.EnclosingRange)
		out.EnclosingEndLine = endLine
		out.HasEnclosing = true
	}
	return out
}

func toProtoOccurrence(o *Occurrence) *scippb.Occurrence {
	out := &scippb.Occurrence{
		Symbol:      o.SymbolID,
		SymbolRoles: o.RoleMask,
		Range:       encodeRange(o.StartLine, o.StartCol, o.EndLine, o.EndCol),
	}
	if o.HasEnclosing {
		out.EnclosingRange = encodeRange(o.StartLine, 0, o.EnclosingEndLine, 0)
	}
	return out
}

// decodeRange expands a SCIP wire range (3 or 4 ints) into explicit
// start/end line/col, per §6: [start_line, start_col, (end_col | end_line,
// end_col)].
func decodeRange(r []int32) (startLine, startCol, endLine, endCol int) {
	switch len(r) {
	case 3:
		startLine = int(r[0])
		startCol = int(r[1])
		endLine = startLine
		endCol = int(r[2])
	case 4:
		startLine = int(r[0])
		startCol = int(r[1])
		endLine = int(r[2])
		endCol = int(r[3])
	}
	return
}

func encodeRange(startLine, startCol, endLine, endCol int) []int32 {
	if startLine == endLine {
		return []int32{int32(startLine), int32(startCol), int32(endCol)}
	}
	return []int32{int32(startLine), int32(startCol), int32(endLine), int32(endCol)}
}

var protoKindToName = map[int32]SymbolKind{
	6:  KindClass,
	17: KindEnum,
	18: KindEnumMember,
	26: KindField,
	41: KindFunction,
	48: KindInterface,
	51: KindMethod,
	54: KindParameter,
	66: KindProperty,
	72: KindConstructor,
	80: KindVariable,
	2:  KindTypeParameter,
}

func mapProtoKind(k scippb.SymbolInformation_Kind) SymbolKind {
	if name, ok := protoKindToName[int32(k)]; ok {
		return name
	}
	return KindUnknown
}

var kindToProtoKind = func() map[SymbolKind]int32 {
	m := make(map[SymbolKind]int32, len(protoKindToName))
	for k, v := range protoKindToName {
		m[v] = k
	}
	return m
}()

func mapKindToProto(k SymbolKind) scippb.SymbolInformation_Kind {
	if v, ok := kindToProtoKind[k]; ok {
		return scippb.SymbolInformation_Kind(v)
	}
	return scippb.SymbolInformation_UnspecifiedKind
}
