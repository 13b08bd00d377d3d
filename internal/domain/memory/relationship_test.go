package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionSet(t *testing.T) {
	assert.Equal(t, "착함, 키 큼", UnionSet("착함", " 키 큼 , 착함"))
	assert.Equal(t, "a", UnionSet("", "a,,a"))
	assert.Equal(t, "", UnionSet("", ""))
}

func TestAnswers(t *testing.T) {
	r := &UserRelationship{Name: "석민", Aliases: "민이, 석미니"}
	assert.True(t, r.Answers("석민"))
	assert.True(t, r.Answers(" 민이 "))
	assert.False(t, r.Answers("민수"))
	assert.False(t, r.Answers(""))
}
