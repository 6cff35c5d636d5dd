package server

import (
	"net/http"
	"strings"
)

type saveImageBody struct {
	CharacterName string `json:"characterName"`
	ImageData     string `json:"imageData"`
	ImageType     string `json:"imageType"`
}

type bindBody struct {
	CharacterName      string `json:"characterName"`
	ReferenceImagePath string `json:"referenceImagePath"`
	ImageType          string `json:"imageType"`
}

type characterBody struct {
	CharacterName string `json:"characterName"`
}

type tagBody struct {
	CharacterName string `json:"characterName"`
	Tag           string `json:"tag"`
}

type forPromptBody struct {
	// Characters はカンマ区切りのキャラクター名です。
	Characters string `json:"characters"`
}

func (h *Handler) ListBindings(w http.ResponseWriter, r *http.Request) {
	list, err := h.bindings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// BindingsForPrompt はカンマ区切りの名前を紐付け情報に解決します。
func (h *Handler) BindingsForPrompt(w http.ResponseWriter, r *http.Request) {
	var body forPromptBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	infos, err := h.bindings.ForPrompt(r.Context(), splitNames(body.Characters))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) SaveImage(w http.ResponseWriter, r *http.Request) {
	var body saveImageBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bindings.SaveReferenceImage(r.Context(), body.CharacterName, body.ImageData, body.ImageType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Bind(w http.ResponseWriter, r *http.Request) {
	var body bindBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bindings.Bind(r.Context(), body.CharacterName, body.ReferenceImagePath, body.ImageType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Unbind(w http.ResponseWriter, r *http.Request) {
	var body characterBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.bindings.Unbind(r.Context(), body.CharacterName); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

// ListReferenceImages は ?type= があれば種別で絞り込んだ一覧を返します。
func (h *Handler) ListReferenceImages(w http.ResponseWriter, r *http.Request) {
	list, err := h.bindings.ListByType(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) SearchReferenceImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.bindings.Search(r.Context(), q.Get("q"), q.Get("tag"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// GetTags は ?name= があればそのキャラクターのタグ、なければ全タグを返します。
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	var (
		tags []string
		err  error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		tags, err = h.bindings.Tags(r.Context(), name)
	} else {
		tags, err = h.bindings.AllTags(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var body tagBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.bindings.AddTag(r.Context(), body.CharacterName, body.Tag); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	var body tagBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.bindings.RemoveTag(r.Context(), body.CharacterName, body.Tag); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

func (h *Handler) DeleteReferenceImage(w http.ResponseWriter, r *http.Request) {
	var body characterBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.bindings.Delete(r.Context(), body.CharacterName); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, true)
}

func splitNames(csv string) []string {
	var names []string
	for _, n := range strings.Split(csv, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// nonNil は nil スライスを空配列として JSON に出すためのものなのだ。
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
