package chatdata

import (
	"fmt"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// The persisted state file is pretty-printed with sorted keys so that
// successive runs produce byte-comparable output. The stdlib-compatible
// jsoniter config sorts map keys the same way encoding/json does.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const jsonIndent = "    "

type fileHandleJSON struct {
	Path      string  `json:"path"`
	Size      int64   `json:"size"`
	MTime     float64 `json:"modification_timestamp"`
	ParentZip *string `json:"parent_zip"`
	Exists    *bool   `json:"exists"`
}

func encodeFileHandle(h FileHandle) fileHandleJSON {
	out := fileHandleJSON{
		Path:   h.Path,
		Size:   h.Size,
		MTime:  h.MTime,
		Exists: boolPtr(h.Exists),
	}
	if h.ParentZip != "" {
		out.ParentZip = stringPtr(string(h.ParentZip))
	}
	return out
}

func decodeFileHandle(in fileHandleJSON) FileHandle {
	h := FileHandle{
		Path:   in.Path,
		Size:   in.Size,
		MTime:  in.MTime,
		Exists: true,
	}
	if in.ParentZip != nil {
		h.ParentZip = FileID(*in.ParentZip)
	}
	if in.Exists != nil {
		h.Exists = *in.Exists
	}
	return h
}

type messageJSON struct {
	Timestamp   string  `json:"timestamp"`
	Sender      string  `json:"sender"`
	Content     string  `json:"content"`
	Year        int     `json:"year"`
	InputFileID string  `json:"input_file_id,omitempty"`
	MediaName   *string `json:"media_name"`

	// InputFile is the pre-id state format: either a bare path string or
	// an inline file record. Never written, only read.
	InputFile jsoniter.RawMessage `json:"input_file,omitempty"`
}

type outputFileJSON struct {
	Year      int                `json:"year"`
	Generate  bool               `json:"generate"`
	MediaDeps map[string]*string `json:"media_dependencies"`
	ChatDeps  []string           `json:"chat_dependencies,omitempty"`
	CSSDep    string             `json:"css_dependency,omitempty"`
}

type chatJSON struct {
	Messages    []messageJSON             `json:"messages"`
	OutputFiles map[string]outputFileJSON `json:"output_files"`
}

type chatDataJSON struct {
	Chats      map[string]chatJSON       `json:"chats"`
	InputFiles map[string]fileHandleJSON `json:"input_files"`
	Timestamp  string                    `json:"timestamp"`
}

// ToJSON serializes the aggregate into the persisted state format.
func (d *ChatData) ToJSON() ([]byte, error) {
	out := chatDataJSON{
		Chats:      make(map[string]chatJSON, len(d.Chats)),
		InputFiles: make(map[string]fileHandleJSON, len(d.InputFiles)),
		Timestamp:  d.Timestamp,
	}

	for id, handle := range d.InputFiles {
		out.InputFiles[string(id)] = encodeFileHandle(handle)
	}

	for name, chat := range d.Chats {
		encoded := chatJSON{
			Messages:    make([]messageJSON, 0, len(chat.Messages)),
			OutputFiles: make(map[string]outputFileJSON, len(chat.OutputFiles)),
		}
		for _, msg := range chat.Messages {
			m := messageJSON{
				Timestamp:   msg.Timestamp,
				Sender:      msg.Sender,
				Content:     msg.Content,
				Year:        msg.Year,
				InputFileID: string(msg.InputFileID),
			}
			if msg.MediaName != "" {
				m.MediaName = stringPtr(msg.MediaName)
			}
			encoded.Messages = append(encoded.Messages, m)
		}
		for year, file := range chat.OutputFiles {
			encoded.OutputFiles[strconv.Itoa(year)] = encodeOutputFile(file)
		}
		out.Chats[string(name)] = encoded
	}

	// Struct fields marshal in declaration order; passing the document
	// through a generic value sorts the keys of every object.
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, err
	}
	return json.MarshalIndent(generic, "", jsonIndent)
}

func encodeOutputFile(f *OutputFile) outputFileJSON {
	out := outputFileJSON{
		Year:      f.Year,
		Generate:  f.Generate,
		MediaDeps: make(map[string]*string, len(f.MediaDependencies)),
		CSSDep:    string(f.CSSDependency),
	}
	for name, id := range f.MediaDependencies {
		if id == "" {
			out.MediaDeps[name] = nil
		} else {
			out.MediaDeps[name] = stringPtr(string(id))
		}
	}
	// Serialized as a sorted list for deterministic output; the in-memory
	// semantics is set equality.
	for id := range f.ChatDependencies {
		out.ChatDeps = append(out.ChatDeps, string(id))
	}
	sort.Strings(out.ChatDeps)
	return out
}

// FromJSON parses persisted state. Legacy messages carrying an inline
// "input_file" (a bare path string or a file record) are upgraded in
// place: a handle is synthesized, recorded in InputFiles, and the message
// keeps its id.
func FromJSON(data []byte) (*ChatData, error) {
	var in chatDataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse chat data: %w", err)
	}

	out := NewChatData()
	if in.Timestamp != "" {
		out.Timestamp = in.Timestamp
	}

	for id, handle := range in.InputFiles {
		out.InputFiles[FileID(id)] = decodeFileHandle(handle)
	}

	for name, encoded := range in.Chats {
		chat := NewChat(ChatName(name))
		for _, m := range encoded.Messages {
			msg := Message{
				Timestamp:   m.Timestamp,
				Sender:      m.Sender,
				Content:     m.Content,
				Year:        m.Year,
				InputFileID: FileID(m.InputFileID),
			}
			if m.MediaName != nil {
				msg.MediaName = *m.MediaName
			}
			if len(m.InputFile) > 0 {
				handle, err := decodeLegacyInputFile(m.InputFile)
				if err != nil {
					return nil, fmt.Errorf("chat %q: %w", name, err)
				}
				msg.InputFileID = handle.ID()
				out.InputFiles[msg.InputFileID] = handle
			}
			chat.Messages = append(chat.Messages, msg)
		}
		for yearKey, encodedFile := range encoded.OutputFiles {
			year, err := strconv.Atoi(yearKey)
			if err != nil {
				return nil, fmt.Errorf("chat %q: output file year %q: %w", name, yearKey, err)
			}
			chat.OutputFiles[year] = decodeOutputFile(year, encodedFile)
		}
		out.Chats[ChatName(name)] = chat
	}

	return out, nil
}

// decodeLegacyInputFile handles the two historical shapes of the
// "input_file" field. A bare string carries no metadata, so the handle
// gets size 0, mtime 0 and is marked non-existent.
func decodeLegacyInputFile(raw jsoniter.RawMessage) (FileHandle, error) {
	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		return FileHandle{Path: path, Exists: false}, nil
	}
	var record fileHandleJSON
	if err := json.Unmarshal(raw, &record); err != nil {
		return FileHandle{}, fmt.Errorf("legacy input_file: %w", err)
	}
	return decodeFileHandle(record), nil
}

func decodeOutputFile(year int, in outputFileJSON) *OutputFile {
	out := NewOutputFile(year)
	out.Generate = in.Generate
	out.CSSDependency = FileID(in.CSSDep)
	for name, id := range in.MediaDeps {
		if id == nil {
			out.MediaDependencies[name] = ""
		} else {
			out.MediaDependencies[name] = FileID(*id)
		}
	}
	for _, id := range in.ChatDeps {
		out.ChatDependencies[FileID(id)] = struct{}{}
	}
	return out
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
