package httpapi

import (
	"net/http"

	"voice-dashboard/internal/contacts"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListContactLists(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Contacts.ListLists(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) CreateContactList(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in contacts.ListInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Contacts.CreateList(c.Request.Context(), org, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetContactList(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Contacts.GetList(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) DeleteContactList(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Contacts.DeleteList(c.Request.Context(), org, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) ListContacts(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	out, err := h.Contacts.ListMembers(c.Request.Context(), org, c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) AddContact(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in contacts.MemberInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Contacts.AddMember(c.Request.Context(), org, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type importRequest struct {
	Contacts []contacts.MemberInput `json:"contacts"`
}

func (h Handlers) ImportContacts(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req importRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Contacts.Import(c.Request.Context(), org, c.Param("id"), req.Contacts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) RemoveContact(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Contacts.RemoveMember(c.Request.Context(), org, c.Param("id"), c.Param("member_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
